package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/shaiso/staralign/internal/domain"
)

// Output управляет форматированием вывода CLI.
type Output struct {
	jsonMode bool
	w        io.Writer // stdout для данных
	errW     io.Writer // stderr для сообщений
}

// NewOutput создаёт Output. Если jsonMode=true, данные выводятся в JSON.
func NewOutput(jsonMode bool) *Output {
	return NewOutputTo(jsonMode, os.Stdout, os.Stderr)
}

// NewOutputTo создаёт Output с заданными потоками.
func NewOutputTo(jsonMode bool, w, errW io.Writer) *Output {
	return &Output{
		jsonMode: jsonMode,
		w:        w,
		errW:     errW,
	}
}

// Print выводит данные: таблицу или JSON в зависимости от режима.
func (o *Output) Print(headers []string, rows [][]string, jsonData any) {
	if o.jsonMode {
		o.JSON(jsonData)
		return
	}
	o.Table(headers, rows)
}

// Table выводит данные в виде таблицы через tabwriter.
func (o *Output) Table(headers []string, rows [][]string) {
	tw := tabwriter.NewWriter(o.w, 0, 0, 2, ' ', 0)

	// Заголовки
	fmt.Fprintln(tw, strings.Join(headers, "\t"))

	// Разделитель
	dashes := make([]string, len(headers))
	for i, h := range headers {
		dashes[i] = strings.Repeat("-", len(h))
	}
	fmt.Fprintln(tw, strings.Join(dashes, "\t"))

	// Строки данных
	for _, row := range rows {
		fmt.Fprintln(tw, strings.Join(row, "\t"))
	}

	tw.Flush()
}

// JSON выводит данные в формате JSON с отступами.
func (o *Output) JSON(v any) {
	enc := json.NewEncoder(o.w)
	enc.SetIndent("", "  ")
	enc.Encode(v)
}

// Manifest выводит manifest run: JSON или таблицу стадий с handles.
func (o *Output) Manifest(m *domain.RunManifest) {
	if o.jsonMode {
		o.JSON(m)
		return
	}

	o.Table([]string{"STAGE", "SUCCESS", "SECONDS", "TOOL", "EXIT_CODE"}, stageRows(m.Stages))

	if m.Published.Primary != "" || m.Published.Index != "" {
		fmt.Fprintln(o.w)
		fmt.Fprintf(o.w, "star_bam:   %s\n", m.Published.Primary)
		fmt.Fprintf(o.w, "star_index: %s\n", m.Published.Index)
	}
}

// stageRows строит строки таблицы стадий.
func stageRows(stages []domain.StageResult) [][]string {
	rows := make([][]string, len(stages))
	for i, s := range stages {
		exitCode := "-"
		if s.ExitCode != nil {
			exitCode = strconv.Itoa(*s.ExitCode)
		}
		tool := s.Tool
		if tool == "" {
			tool = "-"
		}
		rows[i] = []string{
			string(s.Stage),
			strconv.FormatBool(s.Success),
			strconv.FormatFloat(s.DurationSeconds, 'f', 1, 64),
			tool,
			exitCode,
		}
	}
	return rows
}

// Success выводит сообщение об успехе в stderr.
func (o *Output) Success(msg string) {
	fmt.Fprintln(o.errW, msg)
}

// Error выводит сообщение об ошибке в stderr.
func (o *Output) Error(msg string) {
	fmt.Fprintln(o.errW, "Error: "+msg)
}
