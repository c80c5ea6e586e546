package nikkei

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"sync"
)

//go:embed data/nikkei225.json
var rawConstituents []byte

// Constituent is one member of the Nikkei 225 index
type Constituent struct {
	Code   string `json:"code"`
	Name   string `json:"name"`
	Sector string `json:"sector"`
}

type constituentFile struct {
	AsOf   string        `json:"asOf"`
	Stocks []Constituent `json:"stocks"`
}

var (
	loadOnce     sync.Once
	constituents []Constituent
	byCode       map[string]Constituent
	asOf         string
)

func load() {
	loadOnce.Do(func() {
		var file constituentFile
		if err := json.Unmarshal(rawConstituents, &file); err != nil {
			panic(fmt.Sprintf("nikkei: invalid embedded constituent list: %v", err))
		}
		constituents = file.Stocks
		asOf = file.AsOf
		byCode = make(map[string]Constituent, len(file.Stocks))
		for _, c := range file.Stocks {
			byCode[c.Code] = c
		}
	})
}

// List returns the constituents ordered by code
func List() []Constituent {
	load()
	out := make([]Constituent, len(constituents))
	copy(out, constituents)
	return out
}

// Codes returns the securities codes of all constituents
func Codes() []string {
	load()
	codes := make([]string, 0, len(constituents))
	for _, c := range constituents {
		codes = append(codes, c.Code)
	}
	return codes
}

// Lookup finds a constituent by securities code
func Lookup(code string) (Constituent, bool) {
	load()
	c, ok := byCode[code]
	return c, ok
}

// AsOf is the date the embedded list was last revised
func AsOf() string {
	load()
	return asOf
}
