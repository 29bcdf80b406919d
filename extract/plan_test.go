// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package extract

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/saferwall/innoextract/filenames"
	"github.com/saferwall/innoextract/setup"
)

func buildInfo() *setup.Info {
	info := &setup.Info{Codepage: 1252}
	info.Files = []setup.FileEntry{
		{
			Destination: []byte(`{app}\a.txt`),
			Location:    0,
			ConditionData: setup.ConditionData{
				Components: []byte("main"),
			},
		},
		{
			Destination: []byte(`{app}\b.txt`),
			Location:    1,
			ConditionData: setup.ConditionData{
				Components: []byte("docs"),
			},
		},
		{
			Destination: []byte(`{app}\unused.txt`),
			Location:    noLocation,
		},
	}
	info.DataEntries = []setup.DataEntry{
		{
			Chunk: setup.ChunkLocation{FirstSlice: 0, SortOffset: 10},
			File:  setup.FileLocation{Offset: 100, Size: 10},
		},
		{
			Chunk: setup.ChunkLocation{FirstSlice: 0, SortOffset: 10},
			File:  setup.FileLocation{Offset: 0, Size: 50},
		},
	}
	return info
}

func TestBuildPlanSkipsEntriesWithNoLocation(t *testing.T) {
	info := buildInfo()
	fm := filenames.NewMap(nil, false)

	plan, err := BuildPlan(info, fm, Options{})
	require.NoError(t, err)
	require.Len(t, plan, 2)
	for _, pf := range plan {
		require.NotEqual(t, "app/unused.txt", pf.Path, "entry with no data location should have been skipped")
	}
}

func TestBuildPlanFiltersByComponent(t *testing.T) {
	info := buildInfo()
	fm := filenames.NewMap(nil, false)

	plan, err := BuildPlan(info, fm, Options{Component: "docs"})
	require.NoError(t, err)
	require.Len(t, plan, 1)
	require.Equal(t, "app/b.txt", plan[0].Path)
}

func TestBuildPlanPathExpansion(t *testing.T) {
	info := buildInfo()
	fm := filenames.NewMap(map[string]string{"app": "install"}, false)

	plan, err := BuildPlan(info, fm, Options{})
	require.NoError(t, err)
	require.Equal(t, "install/a.txt", plan[0].Path)
}

func TestGroupByChunkOrdersByFileOffsetWithinAChunk(t *testing.T) {
	info := buildInfo()
	fm := filenames.NewMap(nil, false)

	plan, err := BuildPlan(info, fm, Options{})
	require.NoError(t, err)

	groups := GroupByChunk(info, plan)
	require.Len(t, groups, 1, "expected both files to share one chunk")

	items := groups[0].items
	require.Len(t, items, 2)
	// data entry 1 (offset 0) must sort before data entry 0 (offset 100),
	// regardless of FileEntry declaration order.
	require.Equal(t, 1, items[0].dataIdx)
	require.Equal(t, 0, items[1].dataIdx)
}
