package state

import (
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNew(t *testing.T) {
	assert.Equal(t, "World", New("").Name())
	assert.Equal(t, "Alice", New("Alice").Name())
}

func TestSetName(t *testing.T) {
	w := New("")
	assert.Equal(t, "World", w.SetName("Alice"))
	assert.Equal(t, "Alice", w.Name())

	// anything goes, including the empty string
	assert.Equal(t, "Alice", w.SetName(""))
	assert.Equal(t, "", w.Name())
	w.SetName("\x00\xff ünïcode")
	assert.Equal(t, "\x00\xff ünïcode", w.Name())
}

func TestConcurrentSetName(t *testing.T) {
	w := New("")
	a := strings.Repeat("A", 4096)
	b := strings.Repeat("B", 4096)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(3)
		go func() {
			defer wg.Done()
			w.SetName(a)
		}()
		go func() {
			defer wg.Done()
			w.SetName(b)
		}()
		go func() {
			defer wg.Done()
			name := w.Name()
			assert.Contains(t, []string{"World", a, b}, name, fmt.Sprintf("torn name of length %d", len(name)))
		}()
	}
	wg.Wait()
	assert.Contains(t, []string{a, b}, w.Name())
}
