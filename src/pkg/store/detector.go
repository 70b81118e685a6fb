package store

import (
	"sort"
	"strings"

	tl "github.com/tuumbleweed/tintlog/logger"
	"github.com/tuumbleweed/tintlog/palette"

	"receipt-impact/src/pkg/config"
)

type Config struct {
	DefaultStore     string              `json:"default_store,omitempty"`
	CollectionPrefix string              `json:"collection_prefix,omitempty"`
	Keywords         map[string][]string `json:"keywords,omitempty"` // store key -> aliases printed on its receipts
}

func DefaultValueConfig() Config {
	return Config{
		DefaultStore:     "generic",
		CollectionPrefix: "receipt_products_",
		Keywords: map[string][]string{
			"carrefour": {"CARREFOUR", "INC S.A."},
			"coto":      {"COTO", "COTO CICSA"},
			"dia":       {"DIA ", "SUPERMERCADOS DIA", "DIA ARGENTINA"},
			"jumbo":     {"JUMBO", "CENCOSUD"},
		},
	}
}

var Cfg Config = DefaultValueConfig()

func InitializeConfig(localConfig *Config) {
	config.Apply(config.GetPackageName(), &Cfg, localConfig, DefaultValueConfig())
}

// Store identifies the chain a receipt comes from and its catalogue collection.
type Store struct {
	Key        string `json:"key"`
	Collection string `json:"collection"`
	Detected   bool   `json:"detected"`
}

type Detector struct {
	defaultStore     string
	collectionPrefix string
	aliases          []alias
}

type alias struct {
	store   string
	keyword string
}

func NewDetector(cfg Config) *Detector {
	detector := &Detector{
		defaultStore:     strings.ToLower(cfg.DefaultStore),
		collectionPrefix: cfg.CollectionPrefix,
	}
	for store, keywords := range cfg.Keywords {
		for _, keyword := range keywords {
			if strings.TrimSpace(keyword) == "" {
				continue
			}
			detector.aliases = append(detector.aliases, alias{store: strings.ToLower(store), keyword: strings.ToUpper(keyword)})
		}
	}
	sort.Slice(detector.aliases, func(i, j int) bool {
		if detector.aliases[i].store != detector.aliases[j].store {
			return detector.aliases[i].store < detector.aliases[j].store
		}
		return detector.aliases[i].keyword < detector.aliases[j].keyword
	})
	return detector
}

/*
Detect finds the store whose keyword appears first in the receipt text.
Receipts usually print the chain name in the header, so the earliest hit wins.
Unknown receipts get the default store.
*/
func (d *Detector) Detect(rawText string) Store {
	upper := strings.ToUpper(rawText)

	best, bestPosition := "", -1
	for _, candidate := range d.aliases {
		position := strings.Index(upper, candidate.keyword)
		if position < 0 {
			continue
		}
		if bestPosition < 0 || position < bestPosition {
			best, bestPosition = candidate.store, position
		}
	}

	if best == "" {
		tl.Log(tl.Info, palette.Purple, "Store is %s, using '%s'", "not recognized", d.defaultStore)
		return d.storeFor(d.defaultStore, false)
	}
	tl.Log(tl.Info1, palette.Green, "Detected store '%s'", best)
	return d.storeFor(best, true)
}

func (d *Detector) storeFor(key string, detected bool) Store {
	return Store{Key: key, Collection: d.collectionPrefix + key, Detected: detected}
}
