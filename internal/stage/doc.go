// Package stage содержит исполнителей стадий pipeline.
//
// # Обзор
//
// Стадия — упорядоченная единица работы с единственным исходом
// (успех или ошибка) и измеренной длительностью. Пакет предоставляет:
//
//   - Timer — измерение длительности стадии независимо от числа подзадач
//   - FanOut — параллельный запуск N задач, ожидание всех
//   - Sequential — один внешний инструмент, запуск и ожидание
//   - Measure — обёртка для стадий без внешних процессов
//
// Каждый исполнитель возвращает domain.StageResult и ошибку-причину.
//
// # Fan-out
//
// FanOut сначала запускает все задачи и только потом ждёт их. Упавшая
// задача не отменяет соседние: ожидаются все handle'ы, в результат
// попадает первая замеченная ошибка.
//
//	res, err := stage.NewFanOut(stage.Config{}).Run(ctx, domain.StageAcquiring, []stage.Task{
//	    stage.CommandTask(runner, unzipR1),
//	    stage.CommandTask(runner, unzipR2),
//	})
//
// # Постусловия
//
// Run принимает Check'и, выполняемые после успешного завершения задач
// внутри того же измерения времени (например, поиск единственного BAM).
package stage
