package main

import (
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"golang.org/x/mod/semver"
)

var targets = []struct {
	GOOS   string
	GOARCH string
	NPMPkg string
	CPU    string
}{
	{"darwin", "arm64", "darwin-arm64", "arm64"},
	{"darwin", "amd64", "darwin-x64", "x64"},
	{"linux", "arm64", "linux-arm64", "arm64"},
	{"linux", "arm", "linux-arm", "arm"},
	{"linux", "amd64", "linux-x64", "x64"},
	{"windows", "arm64", "win32-arm64", "arm64"},
	{"windows", "amd64", "win32-x64", "x64"},
}

type platformPackage struct {
	Name    string   `json:"name"`
	Version string   `json:"version"`
	OS      []string `json:"os"`
	CPU     []string `json:"cpu"`
	Files   []string `json:"files"`
}

func main() {
	if len(os.Args) < 2 || !semver.IsValid("v"+strings.TrimPrefix(os.Args[1], "v")) {
		fmt.Fprintln(os.Stderr, "usage: go run ./publish <version>")
		os.Exit(2)
	}
	version := strings.TrimPrefix(os.Args[1], "v")

	for _, t := range targets {
		fmt.Printf("Building %s/%s...\n", t.GOOS, t.GOARCH)

		binName := "bundlekit"
		if t.GOOS == "windows" {
			binName = "bundlekit.exe"
		}

		pkgDir := filepath.Join("npm", "@micromachine.dev", "bundlekit-"+t.NPMPkg)
		outDir := filepath.Join(pkgDir, "bin")
		if err := os.MkdirAll(outDir, 0755); err != nil {
			panic(err)
		}

		cmd := exec.Command("go", "build",
			"-ldflags", fmt.Sprintf("-s -w -X main.Version=%s", version),
			"-o", filepath.Join(outDir, binName),
			"./main.go",
		)
		cmd.Env = append(os.Environ(),
			"GOOS="+t.GOOS,
			"GOARCH="+t.GOARCH,
			"CGO_ENABLED=0",
		)
		cmd.Stdout = os.Stdout
		cmd.Stderr = os.Stderr

		if err := cmd.Run(); err != nil {
			panic(err)
		}

		// npm only installs the package matching the host through os and cpu
		pkg := platformPackage{
			Name:    "@micromachine.dev/bundlekit-" + t.NPMPkg,
			Version: version,
			OS:      []string{strings.Replace(t.GOOS, "windows", "win32", 1)},
			CPU:     []string{t.CPU},
			Files:   []string{"bin/" + binName},
		}
		data, err := json.MarshalIndent(pkg, "", "  ")
		if err != nil {
			panic(err)
		}
		if err := os.WriteFile(filepath.Join(pkgDir, "package.json"), append(data, '\n'), 0644); err != nil {
			panic(err)
		}
	}
}
