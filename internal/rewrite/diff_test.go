package rewrite

import (
	"strings"
	"testing"
)

func TestGenerateUnifiedDiff(t *testing.T) {
	tests := []struct {
		name        string
		filename    string
		oldContent  string
		newContent  string
		wantErr     bool
		wantContain []string
	}{
		{
			name:       "simple change",
			filename:   "test.txt",
			oldContent: "line 1\nline 2\nline 3\n",
			newContent: "line 1\nline 2 modified\nline 3\n",
			wantErr:    false,
			wantContain: []string{
				"test.txt",
				"-line 2",
				"+line 2 modified",
			},
		},
		{
			name:       "addition",
			filename:   "package.json",
			oldContent: "{\n  \"name\": \"test\"\n}",
			newContent: "{\n  \"name\": \"test\",\n  \"version\": \"1.0.0\"\n}",
			wantErr:    false,
			wantContain: []string{
				"package.json",
				"+",
			},
		},
		{
			name:       "deletion",
			filename:   "config.yaml",
			oldContent: "key1: value1\nkey2: value2\nkey3: value3",
			newContent: "key1: value1\nkey3: value3",
			wantErr:    false,
			wantContain: []string{
				"config.yaml",
				"-key2: value2",
			},
		},
		{
			name:       "no change",
			filename:   "unchanged.txt",
			oldContent: "same content\n",
			newContent: "same content\n",
			wantErr:    false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := GenerateUnifiedDiff(tt.filename, tt.oldContent, tt.newContent)
			if (err != nil) != tt.wantErr {
				t.Errorf("GenerateUnifiedDiff() error = %v, wantErr %v", err, tt.wantErr)
				return
			}

			for _, want := range tt.wantContain {
				if !strings.Contains(got, want) {
					t.Errorf("GenerateUnifiedDiff() output should contain %q, got:\n%s", want, got)
				}
			}
		})
	}
}
