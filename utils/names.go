package utils

import (
	"math/rand"
	"sort"

	"github.com/Pallinder/go-randomdata"

	"github.com/go-gl/mathgl/mgl32"
)

type RandomNameGenerator map[string]struct{}

func (rng *RandomNameGenerator) RandomName() string {
	if *rng == nil {
		*rng = make(map[string]struct{})
		randomdata.CustomRand(rand.New(rand.NewSource(0)))
	}
	for {
		name := randomdata.SillyName()
		// avoid duplicate names
		if _, exists := (*rng)[name]; !exists {
			(*rng)[name] = struct{}{}
			return name
		}
	}
}

var defaultNames RandomNameGenerator

// RandomName hands out process-unique placeholder names for unnamed
// scene nodes and materials.
func RandomName() string {
	return defaultNames.RandomName()
}

func SortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func SortedKeysVec(m map[string]mgl32.Vec4) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func SortedKeysArr(m map[string][]mgl32.Vec4) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
