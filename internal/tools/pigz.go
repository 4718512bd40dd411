package tools

import "github.com/shaiso/staralign/internal/process"

// Pigz — параллельный gzip.
type Pigz struct {
	Path string
}

// DecompressCommand строит `pigz -d -c -p N <src>` с stdout в dst.
func (p Pigz) DecompressCommand(src, dst string, threads int) process.CommandSpec {
	return process.CommandSpec{
		Tool:   orDefault(p.Path, DefaultPigz),
		Args:   []string{"-d", "-c", "-p", threadsArg(threads), src},
		Stdout: dst,
	}
}
