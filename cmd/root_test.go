package cmd

import (
	"testing"
)

func TestRootCommandTree(t *testing.T) {
	root := NewRootCmd()

	tests := []struct {
		path []string
	}{
		{path: []string{"serve"}},
		{path: []string{"pipeline", "resolve"}},
		{path: []string{"pipeline", "build"}},
		{path: []string{"pipeline", "run"}},
		{path: []string{"pipeline", "batch"}},
		{path: []string{"pipeline", "inspect"}},
		{path: []string{"pipeline", "report"}},
	}

	for _, tt := range tests {
		name := tt.path[len(tt.path)-1]
		t.Run(name, func(t *testing.T) {
			found, _, err := root.Find(tt.path)
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if found.Name() != name {
				t.Errorf("Expected %s, got %s", name, found.Name())
			}
		})
	}
}

func TestServePortDefault(t *testing.T) {
	serve := newServeCmd()
	flag := serve.Flags().Lookup("port")
	if flag == nil {
		t.Fatalf("Expected port flag")
	}
	if flag.DefValue != "8888" {
		t.Errorf("Expected 8888, got %s", flag.DefValue)
	}
}
