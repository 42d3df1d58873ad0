package shell

import (
	"fmt"
	"io"

	"github.com/shinji-kodama/penv/internal/model"
)

// PrintPackages writes installed packages as an aligned table:
//
//	PACKAGE              VERSION
//	certifi              2024.2.2
//	requests             2.31.0
func PrintPackages(w io.Writer, pkgs []model.Package) {
	if len(pkgs) == 0 {
		fmt.Fprintln(w, mutedStyle.Render("No packages installed."))
		return
	}

	width := len("PACKAGE")
	for _, p := range pkgs {
		width = max(width, len(p.Name))
	}

	fmt.Fprintln(w, headerStyle.Render(fmt.Sprintf("%-*s  %s", width, "PACKAGE", "VERSION")))
	for _, p := range pkgs {
		fmt.Fprintf(w, "%-*s  %s\n", width, p.Name, p.Version)
	}
}

// PrintOutdated writes outdated packages with the kind of update:
//
//	PACKAGE   CURRENT  LATEST  UPDATE
//	requests  2.31.0   2.32.3  minor
func PrintOutdated(w io.Writer, pkgs []model.OutdatedPackage) {
	nameW, curW, latestW := len("PACKAGE"), len("CURRENT"), len("LATEST")
	for _, p := range pkgs {
		nameW = max(nameW, len(p.Name))
		curW = max(curW, len(p.Version))
		latestW = max(latestW, len(p.LatestVersion))
	}

	fmt.Fprintln(w, headerStyle.Render(fmt.Sprintf("%-*s  %-*s  %-*s  %s",
		nameW, "PACKAGE", curW, "CURRENT", latestW, "LATEST", "UPDATE")))
	for _, p := range pkgs {
		fmt.Fprintf(w, "%-*s  %-*s  %-*s  %s\n",
			nameW, p.Name, curW, p.Version, latestW, p.LatestVersion, p.UpdateKind())
	}
}
