package cli

import (
	"os"
	"path/filepath"
	"testing"
)

const sample = `ANDSKEL
3
BBOX [0,0,0] [1,1,1]
[CRITICAL POINTS]
2
0 0.1 0.1 0.1 1.5 1 0
1
1 0
3 0.9 0.9 0.9 8.25 0 0
1
0 0
[FILAMENTS]
1
0 1 3
0.1 0.1 0.1
0.5 0.5 0.5
0.9 0.9 0.9
[CRITICAL POINTS DATA]
1
density
1.5
8.25
[FILAMENTS DATA]
1
width
0.01
0.02
0.03
`

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}
