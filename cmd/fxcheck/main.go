// Package main 校验特效定义文件
//
// 逐个解析特效文件并打印所有校验错误（含字段路径），
// 任一文件无效时以状态码 1 退出。
//
// Usage:
//
//	go run ./cmd/fxcheck                     # 校验 data/effects 下全部特效
//	go run ./cmd/fxcheck a.yaml dir/ ...     # 校验指定文件或目录
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/decker502/fxsim/internal/particle"
)

type result struct {
	path string
	def  *particle.Definition
	err  error
}

func main() {
	quiet := flag.Bool("q", false, "Only print invalid files")
	flag.Parse()

	paths, err := collect(flag.Args())
	if err != nil {
		fmt.Fprintf(os.Stderr, "fxcheck: %v\n", err)
		os.Exit(2)
	}
	if len(paths) == 0 {
		fmt.Fprintln(os.Stderr, "fxcheck: no effect files found")
		os.Exit(2)
	}

	results := check(context.Background(), paths)
	invalid := 0
	for _, r := range results {
		if r.err == nil {
			if !*quiet {
				fmt.Printf("ok    %s (%d emitters)\n", r.path, r.def.EmitterCount())
			}
			continue
		}
		invalid++
		fmt.Printf("FAIL  %s\n", r.path)
		var verrs particle.ValidationErrors
		if errors.As(r.err, &verrs) {
			for _, e := range verrs {
				fmt.Printf("      %s\n", e)
			}
		} else {
			fmt.Printf("      %v\n", r.err)
		}
	}

	fmt.Printf("%d files, %d invalid\n", len(results), invalid)
	if invalid > 0 {
		os.Exit(1)
	}
}

// collect 展开参数中的目录，默认校验 data/effects
func collect(args []string) ([]string, error) {
	if len(args) == 0 {
		args = []string{filepath.Join("data", "effects")}
	}
	var paths []string
	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			paths = append(paths, arg)
			continue
		}
		matches, err := filepath.Glob(filepath.Join(arg, "*.yaml"))
		if err != nil {
			return nil, err
		}
		paths = append(paths, matches...)
	}
	sort.Strings(paths)
	return paths, nil
}

// check 并发解析全部文件，结果顺序与 paths 一致
func check(ctx context.Context, paths []string) []result {
	results := make([]result, len(paths))
	g, _ := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, p := range paths {
		g.Go(func() error {
			def, err := particle.ParseFile(p)
			results[i] = result{path: p, def: def, err: err}
			return nil
		})
	}
	_ = g.Wait()
	return results
}
