// Package businessflow contains the core business logic and use cases for subscription workflows
package businessflow

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/lanternmail/lantern/app/dto"
	"github.com/lanternmail/lantern/models"
	"github.com/lanternmail/lantern/repository"
	"github.com/xuri/excelize/v2"
)

// AdminChannelFlow manages the channel catalog and recipient exports
type AdminChannelFlow interface {
	CreateChannel(ctx context.Context, req *dto.ChannelCreateRequest) (*dto.ChannelDTO, error)
	UpdateChannel(ctx context.Context, channelID uint, req *dto.ChannelUpdateRequest) (*dto.ChannelDTO, error)
	ListChannels(ctx context.Context, limit, offset int) ([]dto.ChannelDTO, error)
	ListRecipients(ctx context.Context, channelID uint, onlyActive bool, limit, offset int) ([]dto.RecipientDTO, error)
	ExportRecipientsExcel(ctx context.Context, channelID uint) (string, []byte, error)
}

// AdminChannelFlowImpl implements the admin channel flow
type AdminChannelFlowImpl struct {
	channelRepo   repository.ChannelRepository
	recipientRepo repository.RecipientRepository
}

// NewAdminChannelFlow creates a new admin channel flow instance
func NewAdminChannelFlow(channelRepo repository.ChannelRepository, recipientRepo repository.RecipientRepository) AdminChannelFlow {
	return &AdminChannelFlowImpl{
		channelRepo:   channelRepo,
		recipientRepo: recipientRepo,
	}
}

func (f *AdminChannelFlowImpl) CreateChannel(ctx context.Context, req *dto.ChannelCreateRequest) (*dto.ChannelDTO, error) {
	if req == nil || req.Title == "" {
		return nil, NewBusinessError("VALIDATION_ERROR", "Channel title is required", ErrChannelTitleRequired)
	}

	channel := &models.Channel{
		Title:       req.Title,
		SenderName:  req.SenderName,
		SenderEmail: req.SenderEmail,
		JumpTo:      req.JumpTo,
	}
	if err := f.channelRepo.Save(ctx, channel); err != nil {
		return nil, NewBusinessError("CHANNEL_CREATE_FAILED", "Failed to create channel", err)
	}

	result := ToChannelDTO(*channel)
	return &result, nil
}

func (f *AdminChannelFlowImpl) UpdateChannel(ctx context.Context, channelID uint, req *dto.ChannelUpdateRequest) (*dto.ChannelDTO, error) {
	channel, err := f.channelRepo.ByID(ctx, channelID)
	if err != nil {
		return nil, NewBusinessError("CHANNEL_LOOKUP_FAILED", "Failed to lookup channel", err)
	}
	if channel == nil {
		return nil, NewBusinessError("CHANNEL_NOT_FOUND", "Channel not found", ErrChannelNotFound)
	}

	if req.Title != nil {
		if *req.Title == "" {
			return nil, NewBusinessError("VALIDATION_ERROR", "Channel title is required", ErrChannelTitleRequired)
		}
		channel.Title = *req.Title
	}
	if req.SenderName != nil {
		channel.SenderName = *req.SenderName
	}
	if req.SenderEmail != nil {
		channel.SenderEmail = *req.SenderEmail
	}
	if req.JumpTo != nil {
		channel.JumpTo = *req.JumpTo
	}

	if err := f.channelRepo.Update(ctx, channel); err != nil {
		return nil, NewBusinessError("CHANNEL_UPDATE_FAILED", "Failed to update channel", err)
	}

	result := ToChannelDTO(*channel)
	return &result, nil
}

func (f *AdminChannelFlowImpl) ListChannels(ctx context.Context, limit, offset int) ([]dto.ChannelDTO, error) {
	channels, err := f.channelRepo.List(ctx, limit, offset)
	if err != nil {
		return nil, NewBusinessError("CHANNEL_LIST_FAILED", "Failed to list channels", err)
	}

	result := make([]dto.ChannelDTO, 0, len(channels))
	for _, channel := range channels {
		result = append(result, ToChannelDTO(*channel))
	}
	return result, nil
}

func (f *AdminChannelFlowImpl) ListRecipients(ctx context.Context, channelID uint, onlyActive bool, limit, offset int) ([]dto.RecipientDTO, error) {
	recipients, err := f.recipientRepo.ListByChannel(ctx, channelID, onlyActive, limit, offset)
	if err != nil {
		return nil, NewBusinessError("RECIPIENT_LIST_FAILED", "Failed to list recipients", err)
	}

	result := make([]dto.RecipientDTO, 0, len(recipients))
	for _, recipient := range recipients {
		result = append(result, ToRecipientDTO(*recipient))
	}
	return result, nil
}

// ExportRecipientsExcel builds an .xlsx workbook with one row per recipient
// of the channel and returns the suggested filename with the file contents.
func (f *AdminChannelFlowImpl) ExportRecipientsExcel(ctx context.Context, channelID uint) (string, []byte, error) {
	channel, err := f.channelRepo.ByID(ctx, channelID)
	if err != nil {
		return "", nil, NewBusinessError("CHANNEL_LOOKUP_FAILED", "Failed to lookup channel", err)
	}
	if channel == nil {
		return "", nil, NewBusinessError("CHANNEL_NOT_FOUND", "Channel not found", ErrChannelNotFound)
	}

	recipients, err := f.recipientRepo.ListByChannel(ctx, channelID, false, 0, 0)
	if err != nil {
		return "", nil, NewBusinessError("RECIPIENT_LIST_FAILED", "Failed to list recipients", err)
	}

	xl := excelize.NewFile()
	defer func() { _ = xl.Close() }()

	sheet := xl.GetSheetName(0)
	header := []string{"id", "email", "active", "confirmed", "added_on", "confirmed_on", "source_ip"}
	_ = xl.SetSheetRow(sheet, "A1", &header)

	for i, r := range recipients {
		confirmedOn := ""
		if r.ConfirmedOn != nil {
			confirmedOn = r.ConfirmedOn.UTC().Format(time.RFC3339)
		}
		sourceIP := ""
		if r.SourceIP != nil {
			sourceIP = *r.SourceIP
		}
		record := []string{
			strconv.FormatUint(uint64(r.ID), 10),
			r.Email,
			strconv.FormatBool(r.IsActive()),
			strconv.FormatBool(r.IsConfirmed()),
			r.AddedOn.UTC().Format(time.RFC3339),
			confirmedOn,
			sourceIP,
		}
		cellRef, _ := excelize.CoordinatesToCellName(1, i+2)
		_ = xl.SetSheetRow(sheet, cellRef, &record)
	}

	buf, err := xl.WriteToBuffer()
	if err != nil {
		return "", nil, NewBusinessError("EXCEL_WRITE_ERROR", "Failed to write Excel file", err)
	}

	filename := fmt.Sprintf("channel_%d_recipients.xlsx", channelID)
	return filename, buf.Bytes(), nil
}
