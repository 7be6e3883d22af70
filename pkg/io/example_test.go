package io_test

import (
	"context"
	"fmt"
	"os"
	"strings"

	graphio "github.com/matzehuels/graphwriter/pkg/io"
	"github.com/matzehuels/graphwriter/pkg/serialize"
	"github.com/matzehuels/graphwriter/pkg/sink"
)

func ExampleReadJSON() {
	doc := `{
	  "types": {"City": {"keys": {"area": {"convert": "decimal:1"}}, "views": {"public": ["id", "name", "area"]}}},
	  "nodes": [{"id": "c1", "type": "City", "props": {"name": "Berlin", "area": 891.12}}]
	}`
	store, err := graphio.ReadJSON(strings.NewReader(doc))
	if err != nil {
		fmt.Println(err)
		return
	}
	berlin, _ := store.Get("c1")

	opts := serialize.DefaultOptions()
	opts.KeyResolver = store.Schema()
	w := serialize.New(opts)
	if _, err := w.StreamSingle(context.Background(), sink.NewJSON(os.Stdout, false), berlin); err != nil {
		fmt.Println(err)
	}
	fmt.Println()
	// Output:
	// {"id":"c1","name":"Berlin","area":"891.1"}
}
