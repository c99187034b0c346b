package utils

import (
	"reflect"
	"sync"
	"testing"
)

func TestKeyedMutexSerializesPerKey(t *testing.T) {
	km := NewKeyedMutex()
	counter := 0

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			km.Lock("sand")
			defer km.Unlock("sand")
			counter++
		}()
	}
	wg.Wait()

	if counter != 50 {
		t.Errorf("counter = %d, expected 50", counter)
	}
}

func TestLockAllOrdering(t *testing.T) {
	tests := []struct {
		name     string
		keys     []string
		expected []string
	}{
		{"sorted and deduped", []string{"gravel", "sand", "gravel", "clay"}, []string{"clay", "gravel", "sand"}},
		{"single key", []string{"sand"}, []string{"sand"}},
		{"empty", []string{}, []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			km := NewKeyedMutex()
			got := km.LockAll(tt.keys)
			if !reflect.DeepEqual(got, tt.expected) {
				t.Errorf("LockAll(%v) = %v, expected %v", tt.keys, got, tt.expected)
			}
			km.UnlockAll(got)
			// all keys must be re-acquirable after UnlockAll
			for _, key := range tt.expected {
				km.Lock(key)
				km.Unlock(key)
			}
		})
	}
}

func TestLockAllConcurrentOppositeOrder(t *testing.T) {
	km := NewKeyedMutex()
	done := make(chan struct{})

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			keys := km.LockAll([]string{"a", "b"})
			km.UnlockAll(keys)
		}()
		go func() {
			defer wg.Done()
			keys := km.LockAll([]string{"b", "a"})
			km.UnlockAll(keys)
		}()
	}
	go func() {
		wg.Wait()
		close(done)
	}()

	<-done
}
