package impact

import (
	"os"
	"strings"

	tl "github.com/tuumbleweed/tintlog/logger"
	"github.com/tuumbleweed/tintlog/palette"
	"github.com/tuumbleweed/xerr"
	"gopkg.in/yaml.v3"
)

// DefaultStore holds the thresholds used when a store has no entry of its own.
const DefaultStore = "default"

// Threshold bounds (kg CO2e per unit) of the LOW, MEDIUM and HIGH impact levels.
type Threshold struct {
	Low    float64 `yaml:"low" json:"low"`
	Medium float64 `yaml:"medium" json:"medium"`
	High   float64 `yaml:"high" json:"high"`
}

// Table answers the CO2 thresholds of a category at a store, or nil when unknown.
type Table interface {
	Lookup(store, category string) *Threshold
}

/*
ThresholdTable is the read-only YAML table:

	default:
	  Frutas: {low: 0.5, medium: 1.5, high: 3.0}
	stores:
	  dia:
	    Frutas: {low: 0.4, medium: 1.2, high: 2.5}
*/
type ThresholdTable struct {
	Default map[string]Threshold            `yaml:"default"`
	Stores  map[string]map[string]Threshold `yaml:"stores"`
}

// Lookup prefers the store's own entry, then the default section.
func (t *ThresholdTable) Lookup(store, category string) *Threshold {
	if t == nil {
		return nil
	}
	storeKey := strings.ToLower(strings.TrimSpace(store))
	if categories, ok := t.Stores[storeKey]; ok {
		if threshold, ok := categories[category]; ok {
			return &threshold
		}
	}
	if threshold, ok := t.Default[category]; ok {
		return &threshold
	}
	return nil
}

func ParseTable(data []byte) (table *ThresholdTable, e *xerr.Error) {
	table = &ThresholdTable{}
	err := yaml.Unmarshal(data, table)
	if err != nil {
		return nil, xerr.NewError(err, "unable to parse threshold table", nil)
	}

	normalized := make(map[string]map[string]Threshold, len(table.Stores))
	for store, categories := range table.Stores {
		normalized[strings.ToLower(strings.TrimSpace(store))] = categories
	}
	table.Stores = normalized
	return table, nil
}

func LoadTable(path string) (table *ThresholdTable, e *xerr.Error) {
	tl.Log(tl.Info, palette.Blue, "%s threshold table from '%s'", "Loading", path)

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, xerr.NewError(err, "unable to read threshold table", path)
	}

	table, e = ParseTable(data)
	if e != nil {
		return nil, e
	}

	tl.Log(
		tl.Info1, palette.Green, "%s threshold table with '%v' default categories and '%v' stores",
		"Loaded", len(table.Default), len(table.Stores),
	)
	return table, nil
}
