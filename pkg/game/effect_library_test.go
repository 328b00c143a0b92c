package game

import (
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"testing/fstest"

	"github.com/decker502/fxsim/internal/particle"
)

func TestEffectLibrary_GetCaches(t *testing.T) {
	lib := NewEffectLibrary(testEffectFS(), "effects")

	a, err := lib.Get("spark")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	b, err := lib.Get("spark.yaml")
	if err != nil {
		t.Fatalf("Get with extension failed: %v", err)
	}
	if a != b {
		t.Error("Expected the cached definition to be shared")
	}
	if a.Name != "spark" {
		t.Errorf("Expected name 'spark', got %q", a.Name)
	}

	lib.Invalidate("spark")
	c, err := lib.Get("spark")
	if err != nil {
		t.Fatalf("Get after Invalidate failed: %v", err)
	}
	if c == a {
		t.Error("Invalidate should force a reload")
	}
}

func TestEffectLibrary_Missing(t *testing.T) {
	lib := NewEffectLibrary(testEffectFS(), "effects")
	if _, err := lib.Get("nope"); err == nil {
		t.Error("Expected error for missing effect")
	}
}

func TestEffectLibrary_NamesAndLoadAll(t *testing.T) {
	fsys := testEffectFS()
	fsys["effects/broken.yaml"] = &fstest.MapFile{Data: []byte("emitters: []\nbogus: 1\n")}
	lib := NewEffectLibrary(fsys, "effects")

	names, err := lib.Names()
	if err != nil {
		t.Fatalf("Names failed: %v", err)
	}
	want := []string{"broken", "oneshot", "spark"}
	if len(names) != len(want) {
		t.Fatalf("Names = %v, want %v", names, want)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Errorf("Names[%d] = %q, want %q", i, names[i], want[i])
		}
	}

	loaded, err := lib.LoadAll()
	if loaded != 2 {
		t.Errorf("Expected 2 loaded effects, got %d", loaded)
	}
	var verrs particle.ValidationErrors
	if !errors.As(err, &verrs) {
		t.Fatalf("Expected ValidationErrors in joined error, got %v", err)
	}
	if _, err := lib.Get("spark"); err != nil {
		t.Errorf("Valid effects should stay cached: %v", err)
	}
}

func TestEffectLibrary_ConcurrentGet(t *testing.T) {
	lib := NewEffectLibrary(testEffectFS(), "effects")

	var wg sync.WaitGroup
	defs := make([]*particle.Definition, 16)
	for i := range defs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			def, err := lib.Get("oneshot")
			if err != nil {
				t.Errorf("Get failed: %v", err)
				return
			}
			defs[i] = def
		}(i)
	}
	wg.Wait()

	for i := 1; i < len(defs); i++ {
		if defs[i] != defs[0] {
			t.Fatal("Concurrent Get should converge on one cached definition")
		}
	}
}

// 自带特效可以加载并运行数秒而不出错
func TestShippedEffectsRun(t *testing.T) {
	lib := NewEffectLibrary(os.DirFS(filepath.Join("..", "..", "data", "effects")), ".")
	n, err := lib.LoadAll()
	if err != nil {
		t.Fatalf("LoadAll failed: %v", err)
	}
	if n == 0 {
		t.Fatal("No shipped effects found")
	}

	names, _ := lib.Names()
	for _, name := range names {
		t.Run(name, func(t *testing.T) {
			def, err := lib.Get(name)
			if err != nil {
				t.Fatalf("Get failed: %v", err)
			}
			inst, err := NewInstance(def, Options{Seed: 3, Emitting: true})
			if err != nil {
				t.Fatalf("NewInstance failed: %v", err)
			}
			for i := 0; i < 180; i++ {
				inst.Advance(1.0 / 60)
			}
			if st := inst.Stats(); st.Emitters == 0 {
				t.Errorf("Expected live emitters, got %+v", st)
			}
		})
	}
}
