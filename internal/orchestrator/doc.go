// Package orchestrator реализует PipelineController — последовательное
// выполнение стадий выравнивания одного run.
//
// Порядок стадий фиксирован:
//
//	Acquiring → Aligning → Renaming → Indexing → Publishing
//
// Каждая стадия запускается только после успеха предыдущей. Любая ошибка
// фатальна для run: нет retry, нет частичной публикации, нет продолжения
// с упавшей стадии. Результат — RunManifest с таймингами всех стадий.
package orchestrator
