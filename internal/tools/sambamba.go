package tools

import "github.com/shaiso/staralign/internal/process"

// Sambamba — индексатор BAM.
type Sambamba struct {
	Path string
}

// IndexCommand строит `sambamba index --nthreads N <bam>`.
// Индекс пишется рядом с BAM как <bam>.bai.
func (s Sambamba) IndexCommand(bam string, threads int) process.CommandSpec {
	return process.CommandSpec{
		Tool: orDefault(s.Path, DefaultSambamba),
		Args: []string{"index", "--nthreads", threadsArg(threads), bam},
	}
}
