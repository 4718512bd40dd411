package tools

import "github.com/shaiso/staralign/internal/process"

// Pbzip2 — параллельный bzip2.
type Pbzip2 struct {
	Path string
}

// DecompressCommand строит `pbzip2 -d -c -pN <src>` с stdout в dst.
func (p Pbzip2) DecompressCommand(src, dst string, threads int) process.CommandSpec {
	return process.CommandSpec{
		Tool:   orDefault(p.Path, DefaultPbzip2),
		Args:   []string{"-d", "-c", "-p" + threadsArg(threads), src},
		Stdout: dst,
	}
}
