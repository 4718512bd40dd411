package storage

import "errors"

var (
	// ErrEmptyRef — пустая ссылка на объект.
	ErrEmptyRef = errors.New("empty object reference")

	// ErrNotFound — объект или префикс не найден.
	ErrNotFound = errors.New("object not found")

	// ErrNoBucket — ссылка без бакета и бакет по умолчанию не задан.
	ErrNoBucket = errors.New("bucket is not configured")

	// ErrUnsafeKey — ключ объекта указывает за пределы директории архива.
	ErrUnsafeKey = errors.New("object key escapes archive root")

	// ErrConfig — неполная конфигурация хранилища.
	ErrConfig = errors.New("invalid storage config")
)
