package main

import (
	"log"
	"os"
	"path/filepath"

	backtest "github.com/rxtech-lab/argo-ladder/internal/backtest/engine/engine_v1"
	live "github.com/rxtech-lab/argo-ladder/internal/trading/engine/engine_v1"
	"github.com/rxtech-lab/argo-ladder/pkg/utils"
	"gopkg.in/yaml.v3"
)

// sampleSymbol fills the symbol of the generated sample configs.
const sampleSymbol = "BTCUSDT"

type configFile struct {
	name   string
	schema func() (string, error)
	sample any
}

func configFiles() []configFile {
	backtestConfig := backtest.EmptyConfig()
	backtestConfig.Symbol = sampleSymbol

	liveConfig := live.DefaultConfig()
	liveConfig.Symbol = sampleSymbol
	liveConfig.SnapshotKey = sampleSymbol

	return []configFile{
		{
			name:   "backtest-engine-v1-config",
			schema: backtestConfig.GenerateSchemaJSON,
			sample: backtestConfig,
		},
		{
			name:   "live-engine-v1-config",
			schema: func() (string, error) { return utils.GetSchemaFromConfig(liveConfig) },
			sample: liveConfig,
		},
	}
}

// generate writes <name>.json schemas into dir and a <name>.yaml sample next
// to each one unless the sample already exists.
func generate(dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	for _, file := range configFiles() {
		schemaJSON, err := file.schema()
		if err != nil {
			return err
		}

		schemaName := file.name + ".json"
		if err := os.WriteFile(filepath.Join(dir, schemaName), []byte(schemaJSON), 0644); err != nil {
			return err
		}

		samplePath := filepath.Join(dir, file.name+".yaml")
		if _, err := os.Stat(samplePath); err == nil {
			continue
		}

		sample, err := sampleYAML(file.sample)
		if err != nil {
			return err
		}

		sample = append([]byte("# yaml-language-server: $schema="+schemaName+"\n"), sample...)
		if err := os.WriteFile(samplePath, sample, 0644); err != nil {
			return err
		}

		log.Printf("Sample config successfully generated at %s", samplePath)
	}

	return nil
}

// sampleYAML marshals config and drops keys whose value is an empty list,
// which is how unset optional values encode.
func sampleYAML(config any) ([]byte, error) {
	var node yaml.Node
	if err := node.Encode(config); err != nil {
		return nil, err
	}

	dropEmptySequences(&node)

	return yaml.Marshal(&node)
}

func dropEmptySequences(node *yaml.Node) {
	if node.Kind != yaml.MappingNode {
		for _, child := range node.Content {
			dropEmptySequences(child)
		}

		return
	}

	content := node.Content[:0]

	for i := 0; i+1 < len(node.Content); i += 2 {
		key, value := node.Content[i], node.Content[i+1]
		if value.Kind == yaml.SequenceNode && len(value.Content) == 0 {
			continue
		}

		dropEmptySequences(value)
		content = append(content, key, value)
	}

	node.Content = content
}

func main() {
	if err := generate("./config"); err != nil {
		log.Fatalf("Failed to generate configs: %v", err)
	}

	log.Printf("Schemas successfully generated in ./config")
}
