package prereq

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mapEdges struct {
	edges map[int64][]int64
	calls int
	fail  int64
}

func (m *mapEdges) PrerequisiteIDs(_ context.Context, courseID int64) ([]int64, error) {
	m.calls++
	if m.fail != 0 && courseID == m.fail {
		return nil, errors.New("read failed")
	}
	return m.edges[courseID], nil
}

func TestReachable(t *testing.T) {
	// 1 -> 2 -> 3 -> 4, 1 -> 5
	g := &mapEdges{edges: map[int64][]int64{1: {2, 5}, 2: {3}, 3: {4}}}
	ctx := context.Background()

	ok, err := Reachable(ctx, g, 1, 4)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = Reachable(ctx, g, 4, 1)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = Reachable(ctx, g, 5, 5)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestWouldCreateCycle(t *testing.T) {
	ctx := context.Background()
	// Chain of five: 1 -> 2 -> 3 -> 4 -> 5
	g := &mapEdges{edges: map[int64][]int64{1: {2}, 2: {3}, 3: {4}, 4: {5}}}

	tests := []struct {
		name           string
		course, prereq int64
		want           bool
	}{
		{"self loop", 3, 3, true},
		{"two cycle", 2, 1, true},
		{"five cycle", 5, 1, true},
		{"forward shortcut", 1, 5, false},
		{"new leaf", 5, 6, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := WouldCreateCycle(ctx, g, tt.course, tt.prereq)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestReachablePropagatesErrors(t *testing.T) {
	g := &mapEdges{edges: map[int64][]int64{1: {2}}, fail: 2}
	_, err := Reachable(context.Background(), g, 1, 9)
	assert.Error(t, err)
}

func TestChainDepthFirstWithSharedPrerequisite(t *testing.T) {
	// 1 -> {2, 3}, 2 -> 4, 3 -> 4
	g := &mapEdges{edges: map[int64][]int64{1: {2, 3}, 2: {4}, 3: {4}}}

	nodes, err := Collect(Chain(context.Background(), g, 1))
	require.NoError(t, err)

	var order []int64
	for _, n := range nodes {
		order = append(order, n.CourseID)
	}
	assert.Equal(t, []int64{1, 2, 4, 3}, order)
	assert.Equal(t, []int64{2, 3}, nodes[0].Prerequisites)
	assert.Equal(t, 0, nodes[0].Depth)
	assert.Equal(t, 2, nodes[2].Depth)
	assert.Equal(t, int64(2), nodes[2].ParentID)
}

func TestChainTerminatesOnCycle(t *testing.T) {
	g := &mapEdges{edges: map[int64][]int64{1: {2}, 2: {3}, 3: {1}}}

	nodes, err := Collect(Chain(context.Background(), g, 1))
	require.NoError(t, err)
	assert.Len(t, nodes, 3)
}

func TestChainIsLazyAndRestartable(t *testing.T) {
	g := &mapEdges{edges: map[int64][]int64{1: {2}, 2: {3}, 3: {4}}}
	seq := Chain(context.Background(), g, 1)
	assert.Zero(t, g.calls, "building the sequence must not read edges")

	for node, err := range seq {
		require.NoError(t, err)
		assert.Equal(t, int64(1), node.CourseID)
		break
	}
	assert.Equal(t, 1, g.calls)

	first, err := Collect(seq)
	require.NoError(t, err)
	second, err := Collect(seq)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Len(t, first, 4)
}

func TestChainStopsOnError(t *testing.T) {
	g := &mapEdges{edges: map[int64][]int64{1: {2}}, fail: 2}
	_, err := Collect(Chain(context.Background(), g, 1))
	assert.Error(t, err)
}
