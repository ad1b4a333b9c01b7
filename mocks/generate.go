package mocks

//go:generate mockgen -destination=./mock_trading.go -package=mocks github.com/rxtech-lab/argo-ladder/internal/trading Gateway,BarFeed
//go:generate mockgen -destination=./mock_datasource.go -package=mocks github.com/rxtech-lab/argo-ladder/internal/backtest/engine/engine_v1/datasource DataSource
//go:generate mockgen -destination=./mock_snapshot.go -package=mocks github.com/rxtech-lab/argo-ladder/internal/risk SnapshotStore
