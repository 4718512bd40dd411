// Package process запускает внешние инструменты pipeline.
//
// # Обзор
//
// Инструменты (aligner, indexer, распаковщик) описываются типизированным
// CommandSpec: имя исполняемого файла и список аргументов. Shell не
// используется, поэтому подстановка строк в команду невозможна.
//
//	r := process.NewRunner(process.Config{Logger: logger})
//
//	h, err := r.Launch(ctx, process.CommandSpec{
//	    Tool: "sambamba",
//	    Args: []string{"index", "--nthreads", "8", "sample.bam"},
//	})
//	if err != nil {
//	    return err
//	}
//	if err := h.Wait(); err != nil {
//	    // *domain.ExternalToolFailure
//	}
//
// Launch не блокирует; блокирует только Handle.Wait. Ненулевой код
// выхода превращается в *domain.ExternalToolFailure, вывод инструмента
// runner не интерпретирует.
//
// # In-process задачи
//
// Go оборачивает блокирующий вызов (например, загрузку файла через
// resolver) в Handle, чтобы он участвовал в fan-out наравне с процессами.
package process
