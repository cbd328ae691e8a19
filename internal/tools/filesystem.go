package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// resolveToolPath resolves a file path against workspace (if relative) and
// rejects anything escaping it.
func resolveToolPath(path, workspace string) (string, error) {
	p := path
	if !filepath.IsAbs(p) && workspace != "" {
		p = filepath.Join(workspace, p)
	}
	resolved, err := filepath.EvalSymlinks(p)
	if err != nil {
		// Path may not exist yet (for writes); use Clean instead
		resolved = filepath.Clean(p)
	}
	if workspace != "" {
		root := filepath.Clean(workspace)
		if resolved != root && !strings.HasPrefix(resolved, root+string(filepath.Separator)) {
			return "", fmt.Errorf("path %s is outside workspace %s", path, workspace)
		}
	}
	return resolved, nil
}

// ---------------------------------------------------------------------------
// FileCreatorTool
// ---------------------------------------------------------------------------

// FileCreatorTool creates one or more files with specified content. The
// "files" argument is either a single {path, content} object or a list of
// them; models use both shapes interchangeably.
type FileCreatorTool struct {
	workspace string
}

func NewFileCreatorTool(workspace string) *FileCreatorTool {
	return &FileCreatorTool{workspace: workspace}
}

func (t *FileCreatorTool) Name() string { return string(ToolFileCreator) }
func (t *FileCreatorTool) Description() string {
	return "Create new files with specified content. Accepts a single {path, content} object or a list of them. Creates parent directories automatically."
}
func (t *FileCreatorTool) Parameters() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"files": {
				"oneOf": [
					{
						"type": "object",
						"properties": {
							"path": {"type": "string"},
							"content": {"type": "string"}
						},
						"required": ["path", "content"]
					},
					{
						"type": "array",
						"items": {
							"type": "object",
							"properties": {
								"path": {"type": "string"},
								"content": {"type": "string"}
							},
							"required": ["path", "content"]
						}
					}
				]
			}
		},
		"required": ["files"]
	}`)
}

func (t *FileCreatorTool) Execute(_ context.Context, params map[string]any) (string, error) {
	specs, err := fileSpecs(params["files"])
	if err != nil {
		return "Error: " + err.Error(), nil
	}
	if len(specs) == 0 {
		return "Error: files is required", nil
	}

	var lines []string
	created := 0
	for _, spec := range specs {
		fp, err := resolveToolPath(spec.path, t.workspace)
		if err != nil {
			lines = append(lines, "Error: "+err.Error())
			continue
		}
		if err := os.MkdirAll(filepath.Dir(fp), 0o755); err != nil {
			lines = append(lines, fmt.Sprintf("Error creating directories for %s: %s", spec.path, err))
			continue
		}
		if err := os.WriteFile(fp, []byte(spec.content), 0o644); err != nil {
			lines = append(lines, fmt.Sprintf("Error writing %s: %s", spec.path, err))
			continue
		}
		created++
		lines = append(lines, fmt.Sprintf("Created %s (%d bytes)", fp, len(spec.content)))
	}
	return fmt.Sprintf("Created %d/%d file(s):\n%s", created, len(specs), strings.Join(lines, "\n")), nil
}

type fileSpec struct {
	path    string
	content string
}

// fileSpecs normalises the files argument. Content given as a JSON object
// is serialised rather than rejected.
func fileSpecs(v any) ([]fileSpec, error) {
	switch files := v.(type) {
	case map[string]any:
		spec, err := oneFileSpec(files)
		if err != nil {
			return nil, err
		}
		return []fileSpec{spec}, nil
	case []any:
		out := make([]fileSpec, 0, len(files))
		for _, item := range files {
			m, ok := item.(map[string]any)
			if !ok {
				return nil, fmt.Errorf("each entry in files must be an object with path and content")
			}
			spec, err := oneFileSpec(m)
			if err != nil {
				return nil, err
			}
			out = append(out, spec)
		}
		return out, nil
	case nil:
		return nil, nil
	}
	return nil, fmt.Errorf("files must be an object or a list of objects")
}

func oneFileSpec(m map[string]any) (fileSpec, error) {
	path, _ := m["path"].(string)
	if path == "" {
		return fileSpec{}, fmt.Errorf("path is required for every file")
	}
	switch c := m["content"].(type) {
	case string:
		return fileSpec{path: path, content: c}, nil
	case map[string]any, []any:
		data, err := json.MarshalIndent(c, "", "  ")
		if err != nil {
			return fileSpec{}, fmt.Errorf("cannot serialise content for %s: %w", path, err)
		}
		return fileSpec{path: path, content: string(data)}, nil
	case nil:
		return fileSpec{}, fmt.Errorf("content is required for %s", path)
	}
	return fileSpec{}, fmt.Errorf("content for %s must be a string or JSON value", path)
}

// ---------------------------------------------------------------------------
// ReadFileTool
// ---------------------------------------------------------------------------

// ReadFileTool reads a file and returns its contents.
type ReadFileTool struct {
	workspace string
}

func NewReadFileTool(workspace string) *ReadFileTool {
	return &ReadFileTool{workspace: workspace}
}

func (t *ReadFileTool) Name() string        { return string(ToolReadFile) }
func (t *ReadFileTool) Description() string { return "Read the contents of a file at the given path." }
func (t *ReadFileTool) Parameters() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"path": {
				"type": "string",
				"description": "The file path to read"
			}
		},
		"required": ["path"]
	}`)
}

func (t *ReadFileTool) Execute(_ context.Context, params map[string]any) (string, error) {
	path, _ := params["path"].(string)
	if path == "" {
		return "Error: path is required", nil
	}
	fp, err := resolveToolPath(path, t.workspace)
	if err != nil {
		return "Error: " + err.Error(), nil
	}
	info, err := os.Stat(fp)
	if err != nil {
		return fmt.Sprintf("Error: File not found: %s", path), nil
	}
	if !info.Mode().IsRegular() {
		return fmt.Sprintf("Error: Not a file: %s", path), nil
	}
	data, err := os.ReadFile(fp)
	if err != nil {
		return fmt.Sprintf("Error reading file: %s", err), nil
	}
	return string(data), nil
}

// ---------------------------------------------------------------------------
// ListDirTool
// ---------------------------------------------------------------------------

// ListDirTool lists the entries of a directory.
type ListDirTool struct {
	workspace string
}

func NewListDirTool(workspace string) *ListDirTool {
	return &ListDirTool{workspace: workspace}
}

func (t *ListDirTool) Name() string        { return string(ToolListDir) }
func (t *ListDirTool) Description() string { return "List the entries of a directory." }
func (t *ListDirTool) Parameters() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"path": {
				"type": "string",
				"description": "The directory path to list. Defaults to the workspace root."
			}
		}
	}`)
}

func (t *ListDirTool) Execute(_ context.Context, params map[string]any) (string, error) {
	path, _ := params["path"].(string)
	if path == "" {
		path = "."
	}
	fp, err := resolveToolPath(path, t.workspace)
	if err != nil {
		return "Error: " + err.Error(), nil
	}
	entries, err := os.ReadDir(fp)
	if err != nil {
		return fmt.Sprintf("Error listing directory: %s", err), nil
	}
	if len(entries) == 0 {
		return fmt.Sprintf("%s is empty", fp), nil
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() {
			name += "/"
		}
		names = append(names, name)
	}
	sort.Strings(names)
	return strings.Join(names, "\n"), nil
}
