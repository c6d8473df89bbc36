// Package exportsvc writes the class board to an Excel workbook.
package exportsvc

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/xuri/excelize/v2"

	"github.com/trezcool/classboard/core/work"
)

const (
	defaultSheet = "Sheet1"
	emptySheet   = "Board"
)

var headers = []string{"Date", "Subject", "Type", "Description", "Attachments", "Done", "ID"}

// SheetName titles a month group, eg. "2024-03" becomes "March 2024".
func SheetName(month string) string {
	t, err := time.Parse("2006-01", month)
	if err != nil {
		if month == "" {
			return "Undated"
		}
		return month
	}
	return t.Format("January 2006")
}

// Workbook builds one sheet per month group, in the order given. Items whose id is in completed are marked done.
func Workbook(groups []work.MonthGroup, completed []string) (*excelize.File, error) {
	done := make(map[string]bool, len(completed))
	for _, id := range completed {
		done[id] = true
	}

	f := excelize.NewFile()
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, errors.Wrap(err, "creating header style")
	}

	if len(groups) == 0 {
		if err = f.SetSheetName(defaultSheet, emptySheet); err != nil {
			return nil, errors.Wrap(err, "renaming sheet")
		}
		return f, writeHeader(f, emptySheet, bold)
	}

	for _, g := range groups {
		sheet := SheetName(g.Month)
		if _, err = f.NewSheet(sheet); err != nil {
			return nil, errors.Wrapf(err, "creating sheet %s", sheet)
		}
		if err = writeHeader(f, sheet, bold); err != nil {
			return nil, err
		}
		for i, it := range g.Items {
			names := make([]string, 0, len(it.Files))
			for _, file := range it.Files {
				names = append(names, file.Name)
			}
			doneCell := ""
			if done[it.ID] {
				doneCell = "yes"
			}
			row := []interface{}{it.Date, string(it.Subject), string(it.Type), it.Description, strings.Join(names, ", "), doneCell, it.ID}
			cell, _ := excelize.CoordinatesToCellName(1, i+2)
			if err = f.SetSheetRow(sheet, cell, &row); err != nil {
				return nil, errors.Wrapf(err, "writing row %d of %s", i+2, sheet)
			}
		}
	}
	if err = f.DeleteSheet(defaultSheet); err != nil {
		return nil, errors.Wrap(err, "removing default sheet")
	}
	f.SetActiveSheet(0)
	return f, nil
}

func writeHeader(f *excelize.File, sheet string, style int) error {
	row := make([]interface{}, 0, len(headers))
	for _, h := range headers {
		row = append(row, h)
	}
	if err := f.SetSheetRow(sheet, "A1", &row); err != nil {
		return errors.Wrapf(err, "writing header of %s", sheet)
	}
	last, _ := excelize.CoordinatesToCellName(len(headers), 1)
	if err := f.SetCellStyle(sheet, "A1", last, style); err != nil {
		return errors.Wrapf(err, "styling header of %s", sheet)
	}
	if err := f.SetColWidth(sheet, "D", "E", 40); err != nil {
		return errors.Wrapf(err, "sizing columns of %s", sheet)
	}
	return nil
}

// Write encodes the workbook of groups to w.
func Write(w io.Writer, groups []work.MonthGroup, completed []string) error {
	f, err := Workbook(groups, completed)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()
	if _, err = f.WriteTo(w); err != nil {
		return errors.Wrap(err, "writing workbook")
	}
	return nil
}

// Filename is the default export file name for t.
func Filename(t time.Time) string {
	return fmt.Sprintf("classboard_%s.xlsx", t.Format("20060102_150405"))
}
