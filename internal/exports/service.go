// Package exports renders archived-lead reports as spreadsheet downloads.
package exports

import (
	"bytes"
	"context"
	"fmt"

	"salesops_backend/internal/leads/repository"
	"salesops_backend/platform/apperr"

	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"
)

const opArchivedWorkbook = "exports.service.archived_workbook"

const sheetName = "Archived Leads"

// Archive is the slice of the audit surface this package exports from.
type Archive interface {
	ArchivedLeads(ctx context.Context, callerID uuid.UUID, filter repository.ArchivedFilter) ([]repository.Lead, error)
}

type Service struct {
	archive Archive
}

func NewService(archive Archive) *Service {
	return &Service{archive: archive}
}

// ArchivedWorkbook renders the archived leads visible to the caller as an
// XLSX workbook, optionally filtered by archive reason.
func (s *Service) ArchivedWorkbook(ctx context.Context, callerID uuid.UUID, reason string) ([]byte, error) {
	leads, err := s.archive.ArchivedLeads(ctx, callerID, repository.ArchivedFilter{Reason: reason})
	if err != nil {
		return nil, err
	}

	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(sheetName)
	if err != nil {
		return nil, apperr.Internal(fmt.Sprintf("create sheet failed: %v", err)).WithOp(opArchivedWorkbook)
	}
	f.SetActiveSheet(index)
	f.DeleteSheet("Sheet1")

	headers := []string{"Phone", "Name", "Owner", "Archive Reason", "Touch Count", "Batch", "Archived At"}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(sheetName, cell, h)
	}

	for row, lead := range leads {
		owner := ""
		if lead.AssignedTo != nil {
			owner = lead.AssignedTo.String()
		}
		reason := ""
		if lead.ArchiveReason != nil {
			reason = string(*lead.ArchiveReason)
		}
		values := []interface{}{
			lead.Phone,
			lead.Name,
			owner,
			reason,
			lead.TouchCount,
			lead.BatchID.String(),
			lead.UpdatedAt.Format("2006-01-02 15:04:05"),
		}
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row+2)
			f.SetCellValue(sheetName, cell, v)
		}
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, apperr.Internal(fmt.Sprintf("write workbook failed: %v", err)).WithOp(opArchivedWorkbook)
	}
	return buf.Bytes(), nil
}
