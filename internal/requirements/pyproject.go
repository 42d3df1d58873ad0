package requirements

import (
	"sort"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/shinji-kodama/penv/internal/model"
)

// pyproject is the subset of pyproject.toml that declares dependencies.
type pyproject struct {
	Project struct {
		Dependencies []string `toml:"dependencies"`
	} `toml:"project"`
	Tool struct {
		Poetry struct {
			Dependencies map[string]interface{} `toml:"dependencies"`
		} `toml:"poetry"`
	} `toml:"tool"`
}

// ParsePyProject extracts runtime dependencies from a pyproject.toml:
// PEP 621 `project.dependencies` first, then Poetry's
// `tool.poetry.dependencies` (minus the "python" constraint). Poetry
// entries are sorted by name because TOML tables are unordered.
//
// PEP 621 strings penv cannot read are kept verbatim in File.Unresolved.
// Poetry path dependencies are kept there too; pip resolves them against
// the working directory.
func ParsePyProject(data []byte) (*File, error) {
	var proj pyproject
	if err := toml.Unmarshal(data, &proj); err != nil {
		return nil, err
	}

	f := &File{}
	for _, dep := range proj.Project.Dependencies {
		dep = strings.TrimSpace(dep)
		if dep == "" {
			continue
		}
		if req, ok := ParseLine(dep); ok {
			f.Requirements = append(f.Requirements, req)
			continue
		}
		f.Unresolved = append(f.Unresolved, dep)
	}

	names := make([]string, 0, len(proj.Tool.Poetry.Dependencies))
	for name := range proj.Tool.Poetry.Dependencies {
		if strings.EqualFold(name, "python") {
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		val := proj.Tool.Poetry.Dependencies[name]
		if table, ok := val.(map[string]interface{}); ok {
			if path, _ := table["path"].(string); path != "" {
				f.Unresolved = append(f.Unresolved, path)
				continue
			}
		}
		f.Requirements = append(f.Requirements, poetryRequirement(name, val))
	}
	return f, nil
}

// poetryRequirement converts one Poetry dependency, either a version
// string or a table with version, extras, markers, git or url keys.
func poetryRequirement(name string, val interface{}) model.Requirement {
	req := model.Requirement{Name: name}

	table, ok := val.(map[string]interface{})
	if !ok {
		v, _ := val.(string)
		req.Specifier = poetrySpecifier(v)
		return req
	}

	v, _ := table["version"].(string)
	req.Specifier = poetrySpecifier(v)
	req.Marker, _ = table["markers"].(string)
	if extras, ok := table["extras"].([]interface{}); ok {
		for _, e := range extras {
			if s, ok := e.(string); ok {
				req.Extras = append(req.Extras, s)
			}
		}
	}

	if git, _ := table["git"].(string); git != "" {
		req.URL = "git+" + git
		for _, key := range []string{"rev", "tag", "branch"} {
			if ref, _ := table[key].(string); ref != "" {
				req.URL += "@" + ref
				break
			}
		}
		req.Specifier = ""
	} else if url, _ := table["url"].(string); url != "" {
		req.URL = url
		req.Specifier = ""
	}
	return req
}

// poetrySpecifier converts a Poetry version constraint into a pip
// specifier. Caret and tilde ranges keep their upper bound ("^1.2" is
// ">=1.2,<2.0", "~1.2.3" is ">=1.2.3,<1.3.0"); "*" or an empty string
// means unpinned and a bare "1.2.3" is an exact pin.
func poetrySpecifier(v string) string {
	v = strings.TrimSpace(v)
	switch {
	case v == "" || v == "*":
		return ""
	case strings.HasPrefix(v, "^"):
		return poetryRange('^', strings.TrimSpace(v[1:]))
	case strings.HasPrefix(v, "~") && !strings.HasPrefix(v, "~="):
		return poetryRange('~', strings.TrimSpace(v[1:]))
	case strings.ContainsAny(v[:1], "<>=!~"):
		return strings.ReplaceAll(v, " ", "")
	default:
		return "==" + v
	}
}

// poetryRange expands a caret or tilde constraint. Caret bumps the
// leftmost non-zero component (or the last one given when all are zero);
// tilde bumps the minor version, or the major when only that is given.
// Versions that are not purely numeric fall back to a lower bound only.
func poetryRange(op byte, v string) string {
	parts := strings.Split(v, ".")
	nums := make([]int, len(parts))
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil {
			return ">=" + v
		}
		nums[i] = n
	}

	bump := 0
	switch op {
	case '^':
		bump = len(nums) - 1
		for i, n := range nums {
			if n != 0 {
				bump = i
				break
			}
		}
	case '~':
		if len(nums) > 1 {
			bump = 1
		}
	}

	upper := make([]string, len(nums))
	for i, n := range nums {
		switch {
		case i < bump:
			upper[i] = strconv.Itoa(n)
		case i == bump:
			upper[i] = strconv.Itoa(n + 1)
		default:
			upper[i] = "0"
		}
	}
	return ">=" + v + ",<" + strings.Join(upper, ".")
}
