// Package importer はxlsx/csvファイルからの単語データ一括取り込みを提供する。
package importer

import (
	"context"
	"encoding/csv"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/hitoshi/tangobook/internal/model"
	"github.com/hitoshi/tangobook/internal/repository"
)

// 必須カラム。phraseのみ省略可。
const (
	columnEnglish      = "english"
	columnJapanese     = "japanese"
	columnPartOfSpeech = "part_of_speech"
	columnLevel        = "level"
	columnPhrase       = "phrase"
)

// Result は取り込み結果の集計。
type Result struct {
	Created int
	Updated int
	Skipped int
}

// Importer は単語データの一括取り込みを行う。
type Importer struct {
	wordRepo repository.WordRepository
}

// NewImporter はImporterを生成する。
func NewImporter(wordRepo repository.WordRepository) *Importer {
	return &Importer{wordRepo: wordRepo}
}

// ImportFile は拡張子に応じてxlsxまたはcsvを読み込み、単語をUPSERTする。
// sheetは空の場合、xlsxのアクティブシートを使用する。csvでは無視される。
func (im *Importer) ImportFile(ctx context.Context, path, sheet string) (*Result, error) {
	var (
		rows [][]string
		err  error
	)
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".xlsx":
		rows, err = readXLSX(path, sheet)
	case ".csv":
		rows, err = readCSV(path)
	default:
		return nil, fmt.Errorf("unsupported file extension: %s", ext)
	}
	if err != nil {
		return nil, err
	}
	return im.importRows(ctx, rows)
}

func readXLSX(path, sheet string) ([][]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open xlsx file: %w", err)
	}
	defer f.Close()

	if sheet == "" {
		sheet = f.GetSheetName(f.GetActiveSheetIndex())
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %s: %w", sheet, err)
	}
	return rows, nil
}

func readCSV(path string) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open csv file: %w", err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read csv: %w", err)
	}
	return rows, nil
}

// importRows はヘッダー行でカラム位置を解決し、以降の行を取り込む。
// 必須カラムが欠けた行はスキップとして数え、処理を継続する。
func (im *Importer) importRows(ctx context.Context, rows [][]string) (*Result, error) {
	if len(rows) == 0 {
		return nil, fmt.Errorf("file has no rows")
	}

	columns, err := resolveColumns(rows[0])
	if err != nil {
		return nil, err
	}

	levels := map[string]*model.Level{}
	partsOfSpeech := map[string]*model.PartOfSpeech{}
	result := &Result{}

	for i, row := range rows[1:] {
		rowNum := i + 2 // ヘッダー行の次から

		english := cellAt(row, columns[columnEnglish])
		japanese := cellAt(row, columns[columnJapanese])
		levelName := cellAt(row, columns[columnLevel])
		posName := cellAt(row, columns[columnPartOfSpeech])

		if english == "" || japanese == "" || levelName == "" || posName == "" {
			slog.Warn("skipping row with missing required columns", slog.Int("row", rowNum))
			result.Skipped++
			continue
		}

		level, ok := levels[levelName]
		if !ok {
			level, err = im.wordRepo.GetOrCreateLevel(ctx, levelName)
			if err != nil {
				return nil, fmt.Errorf("failed to resolve level %s: %w", levelName, err)
			}
			levels[levelName] = level
		}

		pos, ok := partsOfSpeech[posName]
		if !ok {
			pos, err = im.wordRepo.GetOrCreatePartOfSpeech(ctx, posName)
			if err != nil {
				return nil, fmt.Errorf("failed to resolve part of speech %s: %w", posName, err)
			}
			partsOfSpeech[posName] = pos
		}

		created, err := im.wordRepo.UpsertWord(ctx, &model.Word{
			English:        english,
			Japanese:       japanese,
			PartOfSpeechID: pos.ID,
			LevelID:        level.ID,
			Phrase:         cellAt(row, columns[columnPhrase]),
		})
		if err != nil {
			return nil, fmt.Errorf("failed to upsert word %s (row %d): %w", english, rowNum, err)
		}
		if created {
			result.Created++
		} else {
			result.Updated++
		}
	}

	slog.Info("word import finished",
		slog.Int("created", result.Created),
		slog.Int("updated", result.Updated),
		slog.Int("skipped", result.Skipped),
	)
	return result, nil
}

// resolveColumns はヘッダー行からカラム名→位置のマップを作る。
func resolveColumns(header []string) (map[string]int, error) {
	columns := map[string]int{columnPhrase: -1}
	for i, name := range header {
		columns[strings.ToLower(strings.TrimSpace(name))] = i
	}
	for _, required := range []string{columnEnglish, columnJapanese, columnPartOfSpeech, columnLevel} {
		if _, ok := columns[required]; !ok {
			return nil, fmt.Errorf("missing required column: %s", required)
		}
	}
	return columns, nil
}

func cellAt(row []string, index int) string {
	if index < 0 || index >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[index])
}
