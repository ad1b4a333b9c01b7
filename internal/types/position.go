package types

import (
	"math"
	"time"
)

type Side string

const (
	SideLong  Side = "LONG"
	SideShort Side = "SHORT"
)

// Sign is +1 for long and -1 for short.
func (s Side) Sign() float64 {
	if s == SideShort {
		return -1
	}

	return 1
}

// Opposite returns the other side.
func (s Side) Opposite() Side {
	if s == SideShort {
		return SideLong
	}

	return SideShort
}

// Position is an open exposure managed by the profit ladder.
//
// Stage flags only move forward: TP2Hit implies TP1Hit, and RunnerActive
// implies TP2Hit with the stop moved to the entry price.
type Position struct {
	ID              int       `yaml:"id" json:"id" csv:"id"`
	Symbol          string    `yaml:"symbol" json:"symbol" csv:"symbol"`
	Side            Side      `yaml:"side" json:"side" csv:"side"`
	EntryPrice      float64   `yaml:"entry_price" json:"entry_price" csv:"entry_price"`
	Quantity        float64   `yaml:"quantity" json:"quantity" csv:"quantity"`
	InitialQuantity float64   `yaml:"initial_quantity" json:"initial_quantity" csv:"initial_quantity"`
	StopLossPrice   float64   `yaml:"stop_loss_price" json:"stop_loss_price" csv:"stop_loss_price"`
	InitialStop     float64   `yaml:"initial_stop" json:"initial_stop" csv:"initial_stop"`
	TP1Price        float64   `yaml:"tp1_price" json:"tp1_price" csv:"tp1_price"`
	TP2Price        float64   `yaml:"tp2_price" json:"tp2_price" csv:"tp2_price"`
	RunnerPrice     float64   `yaml:"runner_price" json:"runner_price" csv:"runner_price"`
	TP1Hit          bool      `yaml:"tp1_hit" json:"tp1_hit" csv:"tp1_hit"`
	TP2Hit          bool      `yaml:"tp2_hit" json:"tp2_hit" csv:"tp2_hit"`
	RunnerActive    bool      `yaml:"runner_active" json:"runner_active" csv:"runner_active"`
	EntryTime       time.Time `yaml:"entry_time" json:"entry_time" csv:"entry_time"`
	EntryIndex      int       `yaml:"entry_index" json:"entry_index" csv:"entry_index"`
	RiskAmount      float64   `yaml:"risk_amount" json:"risk_amount" csv:"risk_amount"`
	StopLossType    string    `yaml:"stop_loss_type" json:"stop_loss_type" csv:"stop_loss_type"`
}

// RiskDistance is the absolute distance between entry and the stop set at open.
func (p Position) RiskDistance() float64 {
	stop := p.InitialStop
	if stop == 0 {
		stop = p.StopLossPrice
	}

	return math.Abs(p.EntryPrice - stop)
}

// UnrealizedPnL is the mark-to-market profit of the remaining quantity.
func (p Position) UnrealizedPnL(price float64) float64 {
	return (price - p.EntryPrice) * p.Quantity * p.Side.Sign()
}

// StopBreached reports whether price is at or through the stop.
func (p Position) StopBreached(price float64) bool {
	if p.Side == SideLong {
		return price <= p.StopLossPrice
	}

	return price >= p.StopLossPrice
}

// Reached reports whether price is at or beyond target in the profitable direction.
func (p Position) Reached(price, target float64) bool {
	if p.Side == SideLong {
		return price >= target
	}

	return price <= target
}

// Stage describes how far up the ladder the position has progressed.
func (p Position) Stage() string {
	switch {
	case p.RunnerActive:
		return "runner"
	case p.TP2Hit:
		return "tp2"
	case p.TP1Hit:
		return "tp1"
	default:
		return "open"
	}
}
