// Command musgen regenerates core/records_mus.gen.go, the binary
// serializers used by the badger storage layer.
//
// Run it from the module root or through go generate in core.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"time"

	"github.com/Perruchok/vozpublica/core"
	musgen "github.com/mus-format/musgen-go/mus"
	genops "github.com/mus-format/musgen-go/options/generate"
	structops "github.com/mus-format/musgen-go/options/struct"
	typeops "github.com/mus-format/musgen-go/options/type"
)

const output = "core/records_mus.gen.go"

var timeType = reflect.TypeFor[time.Time]()

// records are the stored types, in the order their serializers are emitted.
var records = []reflect.Type{
	reflect.TypeFor[core.Transcript](),
	reflect.TypeFor[core.SpeechTurn](),
	reflect.TypeFor[core.Checkpoint](),
}

// perField picks timed for every time.Time field of t and plain for the
// rest. Field order follows the struct declaration.
func perField[O any](t reflect.Type, plain, timed O) []O {
	opts := make([]O, t.NumField())
	for i := range t.NumField() {
		if t.Field(i).Type == timeType {
			opts[i] = timed
		} else {
			opts[i] = plain
		}
	}
	return opts
}

func generate() ([]byte, error) {
	g, err := musgen.NewCodeGenerator(
		genops.WithPkgPath("github.com/Perruchok/vozpublica/core"),
	)
	if err != nil {
		return nil, err
	}
	g.AddDefinedType(reflect.TypeFor[core.ID]())

	plain := structops.WithField()
	micro := structops.WithField(typeops.WithTimeUnit(typeops.Micro))
	for _, t := range records {
		if err := g.AddStruct(t, perField(t, plain, micro)...); err != nil {
			return nil, fmt.Errorf("%s: %w", t.Name(), err)
		}
	}
	return g.Generate()
}

func main() {
	root, err := os.Getwd()
	if err != nil {
		fail(err)
	}
	if filepath.Base(root) == "core" {
		root = filepath.Dir(root)
	}

	src, err := generate()
	if err != nil {
		fail(err)
	}
	if err := os.WriteFile(filepath.Join(root, output), src, 0o644); err != nil {
		fail(err)
	}
}

func fail(err error) {
	fmt.Fprintln(os.Stderr, "musgen:", err)
	os.Exit(1)
}
