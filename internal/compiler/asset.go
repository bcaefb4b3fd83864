package compiler

import (
	"sort"
)

// Asset is an output artifact. Source and Size are recomputed on every read
// so upstream changes show through without invalidation.
type Asset interface {
	Source() []byte
	Size() int
}

// RawAsset is an asset over fixed bytes.
type RawAsset []byte

func (a RawAsset) Source() []byte { return a }
func (a RawAsset) Size() int      { return len(a) }

// FuncAsset computes its content and size lazily.
type FuncAsset struct {
	ContentFunc func() []byte
	// SizeFunc defaults to the length of ContentFunc's result.
	SizeFunc func() int
}

func (a FuncAsset) Source() []byte {
	if a.ContentFunc == nil {
		return nil
	}
	return a.ContentFunc()
}

func (a FuncAsset) Size() int {
	if a.SizeFunc != nil {
		return a.SizeFunc()
	}
	return len(a.Source())
}

// Derive returns an asset whose content is transform applied to base's
// content at read time.
func Derive(base Asset, transform func([]byte) []byte) Asset {
	return FuncAsset{
		ContentFunc: func() []byte {
			return transform(base.Source())
		},
	}
}

// AssetStat is the name and size of one asset.
type AssetStat struct {
	Name string
	Size int
}

func sortedNames(assets map[string]Asset) []string {
	names := make([]string, 0, len(assets))
	for name := range assets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func statsOf(assets map[string]Asset) []AssetStat {
	names := sortedNames(assets)
	stats := make([]AssetStat, len(names))
	for i, name := range names {
		stats[i] = AssetStat{Name: name, Size: assets[name].Size()}
	}
	return stats
}
