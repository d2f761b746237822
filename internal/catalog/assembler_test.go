package catalog

import (
	"strings"
	"testing"

	"github.com/jgivc/stlcatalog/internal/classifier"
	"github.com/jgivc/stlcatalog/internal/common"
	"github.com/jgivc/stlcatalog/internal/entity"
	"github.com/lithammer/dedent"
	"github.com/stretchr/testify/require"
)

func files(paths ...string) []entity.ContentFile {
	out := make([]entity.ContentFile, 0, len(paths))
	for _, p := range paths {
		out = append(out, entity.ContentFile{Name: p[strings.LastIndex(p, "/")+1:], Path: p})
	}

	return out
}

func TestAddCategoryShapes(t *testing.T) {
	washers := &classifier.Nested{Name: "Washers", Path: "Washers", Children: []classifier.Probe{
		&classifier.Nested{Name: "PlainWasher", Path: "Washers/PlainWasher", Children: []classifier.Probe{
			&classifier.Nested{Name: "ISO7089", Path: "Washers/PlainWasher/ISO7089", Children: []classifier.Probe{
				&classifier.ContentFolder{
					Path:         "Washers/PlainWasher/ISO7089/STL",
					AttributedTo: "Washers/PlainWasher/ISO7089",
					Files:        files("Washers/PlainWasher/ISO7089/STL/Washer_M6.stl"),
				},
			}},
		}},
	}}
	rings := &classifier.Nested{Name: "Rings", Path: "Rings", Children: []classifier.Probe{
		&classifier.Direct{Path: "Rings", Files: files("Rings/loose.stl")},
		&classifier.Nested{Name: "EClip", Path: "Rings/EClip", Children: []classifier.Probe{
			&classifier.Direct{Path: "Rings/EClip", Files: files("Rings/EClip/Ring_A.stl")},
		}},
	}}

	a := NewAssembler(Overwrite)
	a.AddCategory(washers)
	a.AddCategory(rings)
	require.Empty(t, a.Errors())

	data, err := Encode(a.Catalog())
	require.NoError(t, err)

	expected := dedent.Dedent(`
		{
		  "Rings": {
		    "EClip": {
		      "_default": {
		        "files": [
		          {
		            "name": "Ring_A.stl",
		            "path": "Rings/EClip/Ring_A.stl"
		          }
		        ],
		        "path": "Rings/EClip"
		      }
		    },
		    "_root": {
		      "_root": {
		        "files": [
		          {
		            "name": "loose.stl",
		            "path": "Rings/loose.stl"
		          }
		        ],
		        "path": "Rings"
		      }
		    }
		  },
		  "Washers": {
		    "PlainWasher": {
		      "ISO7089": {
		        "files": [
		          {
		            "name": "Washer_M6.stl",
		            "path": "Washers/PlainWasher/ISO7089/STL/Washer_M6.stl"
		          }
		        ],
		        "path": "Washers/PlainWasher/ISO7089/STL"
		      }
		    }
		  }
		}
	`)
	require.Equal(t, strings.TrimLeft(expected, "\n"), string(data))
}

func TestDuplicatePolicy(t *testing.T) {
	standard := func() *classifier.Nested {
		return &classifier.Nested{Name: "Bolts", Path: "Bolts", Children: []classifier.Probe{
			&classifier.Nested{Name: "Hex", Path: "Bolts/Hex", Children: []classifier.Probe{
				&classifier.Nested{Name: "ISO4017", Path: "Bolts/Hex/ISO4017", Children: []classifier.Probe{
					&classifier.Direct{Path: "Bolts/Hex/ISO4017", Files: files("Bolts/Hex/ISO4017/a.stl")},
					&classifier.ContentFolder{Path: "Bolts/Hex/ISO4017/Metric", Inferred: true, Files: files("Bolts/Hex/ISO4017/Metric/b.stl")},
					&classifier.ContentFolder{Path: "Bolts/Hex/ISO4017/Models", Inferred: true, Files: files("Bolts/Hex/ISO4017/Models/c.stl")},
				}},
			}},
		}}
	}

	key := []entity.Key{entity.RealKey("Hex"), entity.RealKey("ISO4017")}

	overwrite := NewAssembler(Overwrite)
	overwrite.AddCategory(standard())
	group := overwrite.Catalog()["Bolts"][key[0]][key[1]]
	require.Equal(t, "Bolts/Hex/ISO4017/Models", group.Path)
	require.Equal(t, files("Bolts/Hex/ISO4017/Models/c.stl"), group.Files)
	require.Equal(t, 2, overwrite.Replaced())
	require.Equal(t, 3, overwrite.Placements())

	merge := NewAssembler(Merge)
	merge.AddCategory(standard())
	group = merge.Catalog()["Bolts"][key[0]][key[1]]
	require.Equal(t, "Bolts/Hex/ISO4017", group.Path)
	require.Equal(t, files("Bolts/Hex/ISO4017/a.stl", "Bolts/Hex/ISO4017/Metric/b.stl", "Bolts/Hex/ISO4017/Models/c.stl"), group.Files)
}

func TestReservedNames(t *testing.T) {
	node := &classifier.Nested{Name: "Bolts", Path: "Bolts", Children: []classifier.Probe{
		&classifier.Nested{Name: "_root", Path: "Bolts/_root", Children: []classifier.Probe{
			&classifier.Direct{Path: "Bolts/_root", Files: files("Bolts/_root/x.stl")},
		}},
		&classifier.Nested{Name: "Hex", Path: "Bolts/Hex", Children: []classifier.Probe{
			&classifier.Nested{Name: "_default", Path: "Bolts/Hex/_default", Children: []classifier.Probe{
				&classifier.Direct{Path: "Bolts/Hex/_default", Files: files("Bolts/Hex/_default/y.stl")},
			}},
		}},
	}}

	a := NewAssembler(Overwrite)
	a.AddCategory(node)

	require.Empty(t, a.Catalog())
	require.Len(t, a.Errors(), 2)
	require.ErrorIs(t, a.Errors()[0], common.ErrReservedName)
	require.Equal(t, "Bolts/_root", a.Errors()[0].Path)
	require.Equal(t, "Bolts/Hex/_default", a.Errors()[1].Path)
}

func TestEmptyGroupsAreDropped(t *testing.T) {
	a := NewAssembler(Overwrite)
	a.Add(Placement{Category: "Nuts", Subtype: entity.RootKey(), Key: entity.RootKey(), Path: "Nuts"})
	a.AddCategory(&classifier.Nested{Name: "Screws", Path: "Screws"})

	require.Empty(t, a.Catalog())
	require.Zero(t, a.Placements())
}

func TestCombineIsOrderedByCaller(t *testing.T) {
	first := entity.Catalog{"Bolts": {entity.RealKey("Hex"): {entity.DefaultKey(): {Path: "Bolts/Hex", Files: files("Bolts/Hex/a.stl")}}}}
	second := entity.Catalog{"Bolts": {entity.RealKey("Hex"): {entity.DefaultKey(): {Path: "Bolts/Hex", Files: files("Bolts/Hex/b.stl")}}}}
	nuts := entity.Catalog{"Nuts": {entity.RootKey(): {entity.RootKey(): {Path: "Nuts", Files: files("Nuts/n.stl")}}}}

	merged := Combine(Overwrite, first, nuts, second)
	require.Equal(t, files("Bolts/Hex/b.stl"), merged["Bolts"][entity.RealKey("Hex")][entity.DefaultKey()].Files)
	require.Contains(t, merged, "Nuts")

	merged = Combine(Merge, first, second)
	require.Equal(t, files("Bolts/Hex/a.stl", "Bolts/Hex/b.stl"), merged["Bolts"][entity.RealKey("Hex")][entity.DefaultKey()].Files)

	require.Len(t, first["Bolts"][entity.RealKey("Hex")][entity.DefaultKey()].Files, 1)
}

func TestEncodeIsStable(t *testing.T) {
	c := entity.Catalog{
		"Nuts":  {entity.RootKey(): {entity.RootKey(): {Path: "Nuts", Files: files("Nuts/n.stl")}}},
		"Bolts": {entity.RealKey("Hex"): {entity.DefaultKey(): {Path: "Bolts/Hex", Files: files("Bolts/Hex/a.stl")}}},
	}

	first, err := Encode(c)
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		again, err := Encode(c)
		require.NoError(t, err)
		require.Equal(t, first, again)
	}

	back, err := Decode(first)
	require.NoError(t, err)
	require.Equal(t, c, back)

	empty, err := Encode(nil)
	require.NoError(t, err)
	require.Equal(t, "{}\n", string(empty))
}

func TestParseDuplicatePolicy(t *testing.T) {
	p, err := ParseDuplicatePolicy("merge")
	require.NoError(t, err)
	require.Equal(t, Merge, p)
	require.Equal(t, "merge", p.String())

	p, err = ParseDuplicatePolicy("")
	require.NoError(t, err)
	require.Equal(t, Overwrite, p)

	_, err = ParseDuplicatePolicy("append")
	require.Error(t, err)
}
