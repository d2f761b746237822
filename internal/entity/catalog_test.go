package entity

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestKeyText(t *testing.T) {
	for _, k := range []Key{RealKey("ISO7089"), DefaultKey(), RootKey()} {
		text, err := k.MarshalText()
		require.NoError(t, err)

		var back Key
		require.NoError(t, back.UnmarshalText(text))
		require.Equal(t, k, back)
	}

	_, err := RealKey(DefaultKeyName).MarshalText()
	require.Error(t, err)
}

func TestCatalogJSONShape(t *testing.T) {
	c := Catalog{
		"Rings": {
			RealKey("EClip"): {
				DefaultKey(): {Files: []ContentFile{{Name: "Ring_A.stl", Path: "Rings/EClip/Ring_A.stl"}}, Path: "Rings/EClip"},
			},
			RootKey(): {
				RootKey(): {Files: []ContentFile{{Name: "r.stl", Path: "Rings/r.stl"}}, Path: "Rings"},
			},
		},
	}

	data, err := json.Marshal(c)
	require.NoError(t, err)
	require.JSONEq(t, `{"Rings":{
		"EClip":{"_default":{"files":[{"name":"Ring_A.stl","path":"Rings/EClip/Ring_A.stl"}],"path":"Rings/EClip"}},
		"_root":{"_root":{"files":[{"name":"r.stl","path":"Rings/r.stl"}],"path":"Rings"}}}}`, string(data))

	var back Catalog
	require.NoError(t, json.Unmarshal(data, &back))
	require.Equal(t, c, back)
}

func TestCatalogStats(t *testing.T) {
	c := Catalog{
		"Bolts": {
			RealKey("Hex"): {
				RealKey("ISO4017"): {Files: []ContentFile{{Name: "a.stl"}, {Name: "b.stl"}}},
				DefaultKey():        {Files: []ContentFile{{Name: "c.stl"}}},
			},
		},
		"Nuts": {},
	}

	require.Equal(t, Stats{Categories: 2, Subtypes: 1, Groups: 2, Files: 3}, c.Stats())
	require.Equal(t, []string{"Bolts", "Nuts"}, c.CategoryNames())
	require.Equal(t, []Key{RealKey("ISO4017"), DefaultKey()}, SortedKeys(c["Bolts"][RealKey("Hex")]))
}

func TestCategoryFlatten(t *testing.T) {
	c := Category{
		RealKey("Hex"): {DefaultKey(): {Path: "Bolts/Hex"}},
	}

	flat := c.Flatten()
	require.Equal(t, "Bolts/Hex", flat["Hex"]["_default"].Path)
	require.Equal(t, c, CategoryFromFlat(flat))
}
