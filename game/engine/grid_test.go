package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGridWallTakesTwoHits(t *testing.T) {
	g, err := NewGrid(3, 3, false)
	require.NoError(t, err)
	g.SetCell(1, 1, Wall)

	assert.True(t, g.Weaken(1, 1))
	assert.Equal(t, WeakWall, g.CellAt(1, 1))
	assert.Equal(t, 1, g.Damage(1, 1))

	assert.True(t, g.Weaken(1, 1))
	assert.Equal(t, Empty, g.CellAt(1, 1))
	assert.Equal(t, 0, g.Damage(1, 1))

	assert.False(t, g.Weaken(1, 1), "third hit on an empty cell is a no-op")
	assert.Equal(t, Empty, g.CellAt(1, 1))
}

func TestGridWeakenIgnoresNonWalls(t *testing.T) {
	g, err := NewGrid(3, 3, false)
	require.NoError(t, err)
	g.SetCell(0, 0, Mine)

	for _, p := range []Position{{0, 0}, {1, 1}, {-1, 0}} {
		if g.Weaken(p.X, p.Y) {
			t.Errorf("Weaken(%v) should be a no-op", p)
		}
	}
	assert.Equal(t, Mine, g.CellAt(0, 0))
}

func TestGridSetWeakWallImpliesDamage(t *testing.T) {
	g, err := NewGrid(2, 2, false)
	require.NoError(t, err)
	g.SetCell(0, 1, WeakWall)

	assert.Equal(t, 1, g.Damage(0, 1))
	g.Weaken(0, 1)
	assert.Equal(t, Empty, g.CellAt(0, 1))
}

func TestGridBoundedAccess(t *testing.T) {
	g, err := NewGrid(4, 3, false)
	require.NoError(t, err)

	tests := []struct {
		x, y int
		want Terrain
	}{
		{0, 0, Empty},
		{3, 2, Empty},
		{-1, 0, Unknown},
		{4, 0, Unknown},
		{0, 3, Unknown},
		{0, -1, Unknown},
	}
	for _, tt := range tests {
		if got := g.CellAt(tt.x, tt.y); got != tt.want {
			t.Errorf("CellAt(%d,%d) = %s, want %s", tt.x, tt.y, got, tt.want)
		}
	}

	// off-board writes are dropped
	g.SetCell(10, 10, Wall)
	assert.Equal(t, 0, g.Count(Wall))
}

func TestGridWrapAround(t *testing.T) {
	g, err := NewGrid(5, 4, true)
	require.NoError(t, err)
	g.SetCell(4, 3, Mine)

	assert.Equal(t, Mine, g.CellAt(-1, -1))
	assert.Equal(t, Mine, g.CellAt(9, 7))
	assert.True(t, g.InBounds(-100, 100))

	g.SetCell(5, 0, Wall)
	assert.Equal(t, Wall, g.CellAt(0, 0))
}

func TestGridClearBooms(t *testing.T) {
	g, err := NewGrid(3, 1, false)
	require.NoError(t, err)
	g.SetCell(0, 0, Boom)
	g.SetCell(1, 0, Mine)
	g.SetCell(2, 0, Boom)

	g.ClearBooms()

	assert.Equal(t, 0, g.Count(Boom))
	assert.Equal(t, Mine, g.CellAt(1, 0))
	assert.False(t, Boom.Blocks())
}

func TestGridCloneIsDeep(t *testing.T) {
	g, err := NewGrid(2, 2, false)
	require.NoError(t, err)
	c := g.Clone()
	c.SetCell(0, 0, Wall)

	assert.Equal(t, Empty, g.CellAt(0, 0))
	assert.Equal(t, Wall, c.CellAt(0, 0))
}

func TestNewGridRejectsBadDimensions(t *testing.T) {
	_, err := NewGrid(0, 5, false)
	assert.Error(t, err)
	_, err = NewGrid(5, -1, true)
	assert.Error(t, err)
}

func TestGridDeltaAndLineOfFire(t *testing.T) {
	g, err := NewGrid(8, 8, true)
	require.NoError(t, err)

	dx, dy := g.Delta(Position{0, 0}, Position{7, 7})
	assert.Equal(t, -1, dx)
	assert.Equal(t, -1, dy)

	dir, ok := g.Aligned(Position{1, 1}, Position{4, 4})
	require.True(t, ok)
	assert.Equal(t, DownRight, dir)

	_, ok = g.Aligned(Position{1, 1}, Position{2, 4})
	assert.False(t, ok)

	assert.True(t, g.LineOfFire(Position{1, 1}, DownRight, Position{4, 4}, 0))
	g.SetCell(3, 3, WeakWall)
	assert.False(t, g.LineOfFire(Position{1, 1}, DownRight, Position{4, 4}, 0))
	assert.Len(t, g.Ray(Position{1, 1}, DownRight, 0), 1)
}
