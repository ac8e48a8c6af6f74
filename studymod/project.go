package studymod

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/mfauto/mfauto/file"
)

// WriteProject adds a study to a Moldflow project (.mpi) file, creating
// the project if needed. Studies already listed are not added again.
func WriteProject(mpi, sdy string) error {
	sdyBase := filepath.Base(sdy)
	study := fmt.Sprintf("STUDY \"%v\" %v", strings.TrimSuffix(sdyBase, filepath.Ext(sdyBase)), sdyBase)

	if !file.Exists(mpi) {
		mpiBase := filepath.Base(mpi)
		var sb strings.Builder
		sb.WriteString("VERSION 1.0\n")
		fmt.Fprintf(&sb, "BEGIN PROJECT \"%v\"\n", strings.TrimSuffix(mpiBase, filepath.Ext(mpiBase)))
		sb.WriteString(study + "\n")
		sb.WriteString("END PROJECT\n")
		sb.WriteString("ORGANIZE 0\n")
		sb.WriteString("BEGIN PROPERTIES\n")
		sb.WriteString("END PROPERTIES\n")
		return os.WriteFile(mpi, []byte(sb.String()), 0644)
	}

	buf, err := os.ReadFile(mpi)
	if err != nil {
		return err
	}

	var sb strings.Builder
	inserted := false
	for _, line := range strings.SplitAfter(string(buf), "\n") {
		if strings.TrimRight(line, "\r\n") == study {
			return nil
		}
		if !inserted && strings.HasPrefix(line, "END PROJECT") {
			// same line ending as the project file
			eol := "\n"
			if strings.HasSuffix(line, "\r\n") {
				eol = "\r\n"
			}
			sb.WriteString(study + eol)
			inserted = true
		}
		sb.WriteString(line)
	}

	if !inserted {
		return fmt.Errorf("%v: no END PROJECT line", mpi)
	}

	return os.WriteFile(mpi, []byte(sb.String()), 0644)
}
