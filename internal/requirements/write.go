package requirements

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/shinji-kodama/penv/internal/model"
)

// Write stores freeze output at path. The content is pip's own format and
// is written verbatim apart from guaranteeing a trailing newline. The file
// is written to a temp file in the same directory and renamed into place so
// an interrupted write never leaves a truncated requirements file behind.
func Write(path, freezeOutput string) error {
	content := freezeOutput
	if content != "" && !strings.HasSuffix(content, "\n") {
		content += "\n"
	}

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return model.WrapCLIError(model.ExitRequirementsError,
			fmt.Sprintf("failed to write %s", path), err)
	}
	tmpName := tmp.Name()

	// Any failure from here on removes the temp file.
	fail := func(err error) error {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return model.WrapCLIError(model.ExitRequirementsError,
			fmt.Sprintf("failed to write %s", path), err)
	}

	if _, err := tmp.WriteString(content); err != nil {
		return fail(err)
	}
	if err := tmp.Chmod(0644); err != nil {
		return fail(err)
	}
	if err := tmp.Close(); err != nil {
		return fail(err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return model.WrapCLIError(model.ExitRequirementsError,
			fmt.Sprintf("failed to write %s", path), err)
	}
	return nil
}
