// Package storage реализует коллабораторов pipeline для входных и выходных
// данных: resolver (получение FASTQ и архива референса) и publisher
// (публикация BAM и индекса).
//
// Две реализации:
//   - ObjectStore — S3/MinIO через minio-go;
//   - LocalStore — локальная файловая система (тесты, standalone-запуски).
package storage
