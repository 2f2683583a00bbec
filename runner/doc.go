// Package runner — локальный синхронный исполнитель графа.
//
// Runner обходит граф в топологическом порядке и вычисляет задачи
// по одной: проверяет триггер по состояниям upstream задач, применяет
// retry-политику и таймаут из описательной записи задачи, переключается
// по размеченному Outcome и собирает Report.
//
// Исполнитель однопоточный: авторский слой не даёт гарантий
// конкурентного доступа к графу, и runner их не требует.
package runner
