package banner

import (
	"fmt"
	"io"
	"os"
	"runtime"
)

const banner = `
  _____                        ____            _        _
 | ____|_  ____ _ _ __ ___    |  _ \ ___  _ __| |_ __ _| |
 |  _| \ \/ / _' | '_ ' _ \   | |_) / _ \| '__| __/ _' | |
 | |___ >  < (_| | | | | | |  |  __/ (_) | |  | || (_| | |
 |_____/_/\_\__,_|_| |_| |_|  |_|   \___/|_|   \__\__,_|_|
`

// Print 打印启动横幅，包含版本信息和构建信息
func Print(version, commitHash, buildTime string) {
	Fprint(os.Stdout, version, commitHash, buildTime)
}

// Fprint 输出到指定 writer
func Fprint(w io.Writer, version, commitHash, buildTime string) {
	fmt.Fprint(w, banner)
	fmt.Fprintf(w, "  Version:     %s\n", version)

	if commitHash != "" && commitHash != "unknown" {
		// 如果 commit hash 太长，只显示前 7 位
		if len(commitHash) > 7 {
			commitHash = commitHash[:7]
		}
		fmt.Fprintf(w, "  Commit:      %s\n", commitHash)
	}

	if buildTime != "" && buildTime != "unknown" {
		fmt.Fprintf(w, "  Build Time:  %s\n", buildTime)
	}

	fmt.Fprintf(w, "  Go Version:  %s\n", runtime.Version())
	fmt.Fprintf(w, "  OS/Arch:     %s/%s\n", runtime.GOOS, runtime.GOARCH)
	fmt.Fprintln(w)
}
