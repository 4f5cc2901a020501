package services

import (
	"context"
	"strings"

	"Attentus/clients/push"
	"Attentus/models"
	"Attentus/util"

	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const pushPreviewLength = 120

/*
* The other doctor must exist and not be the requester
* The chat for the unordered pair is created once and returned afterwards
 */
func (s *Services) StartChat(ctx context.Context, doctor *models.Doctor, otherID string) (*models.Chat, error) {
	oid, err := util.ParseObjectID(otherID)
	if err != nil {
		return nil, err
	}
	if oid == doctor.ID {
		return nil, util.Validation(util.CHAT_WITH_SELF)
	}
	if _, err := s.Doctors.FindDoctorByID(ctx, oid.Hex()); err != nil {
		return nil, err
	}

	chat, err := s.Chats.FindOrCreateChat(ctx, doctor.ID, oid, s.now())
	if err != nil {
		log.Error().Err(err).Msg("Error from FindOrCreateChat")
		return nil, err
	}
	if err := s.populateParticipants(ctx, []*models.Chat{chat}); err != nil {
		return nil, err
	}
	return chat, nil
}

func (s *Services) ListChats(ctx context.Context, doctor *models.Doctor) ([]models.Chat, error) {
	chats, err := s.Chats.ListChatsForDoctor(ctx, doctor.ID)
	if err != nil {
		log.Error().Err(err).Msg("Error from ListChatsForDoctor")
		return nil, err
	}
	ptrs := make([]*models.Chat, len(chats))
	for i := range chats {
		ptrs[i] = &chats[i]
	}
	if err := s.populateParticipants(ctx, ptrs); err != nil {
		return nil, err
	}
	return chats, nil
}

func (s *Services) participantChat(ctx context.Context, doctor *models.Doctor, id string) (*models.Chat, error) {
	oid, err := util.ParseObjectID(id)
	if err != nil {
		return nil, err
	}
	chat, err := s.Chats.FindChatByID(ctx, oid)
	if err != nil {
		return nil, err
	}
	if !chat.HasParticipant(doctor.ID) {
		return nil, util.Forbidden(util.CHAT_NOT_PARTICIPANT)
	}
	return chat, nil
}

func (s *Services) GetChat(ctx context.Context, doctor *models.Doctor, id string) (*models.Chat, error) {
	chat, err := s.participantChat(ctx, doctor, id)
	if err != nil {
		return nil, err
	}
	if err := s.populateParticipants(ctx, []*models.Chat{chat}); err != nil {
		return nil, err
	}
	return chat, nil
}

func optionalID(raw string) (*primitive.ObjectID, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	oid, err := util.ParseObjectID(raw)
	if err != nil {
		return nil, err
	}
	return &oid, nil
}

/*
* Participant only, content must not be blank
* Optional references must be valid ids
* Append with a server timestamp, then notify the other participant
 */
func (s *Services) SendMessage(ctx context.Context, doctor *models.Doctor, id string, in models.MessageInput) (*models.Chat, error) {
	content := strings.TrimSpace(in.Content)
	if content == "" {
		return nil, util.Validation(util.MESSAGE_CONTENT_REQUIRED)
	}
	chat, err := s.participantChat(ctx, doctor, id)
	if err != nil {
		return nil, err
	}

	msg := models.Message{
		Sender:    doctor.ID,
		Content:   content,
		Timestamp: s.now(),
	}
	if msg.Patient, err = optionalID(in.PatientID); err != nil {
		return nil, err
	}
	if msg.Appointment, err = optionalID(in.AppointmentID); err != nil {
		return nil, err
	}
	if msg.ConsultNoteID, err = optionalID(in.ConsultNoteID); err != nil {
		return nil, err
	}

	updated, err := s.Chats.AppendMessage(ctx, chat.ID, msg)
	if err != nil {
		log.Error().Err(err).Msg("Error from AppendMessage")
		return nil, err
	}
	if err := s.populateParticipants(ctx, []*models.Chat{updated}); err != nil {
		return nil, err
	}

	s.notifyRecipient(ctx, doctor, updated, content)
	return updated, nil
}

// notifyRecipient never fails the request; delivery problems are logged.
func (s *Services) notifyRecipient(ctx context.Context, sender *models.Doctor, chat *models.Chat, content string) {
	if s.Notifier == nil {
		return
	}
	recipientID, ok := chat.OtherParticipant(sender.ID)
	if !ok {
		return
	}
	recipients, err := s.Doctors.FindDoctorsByIDs(ctx, []primitive.ObjectID{recipientID})
	if err != nil {
		log.Warn().Err(err).Msg("Error while loading push recipient")
		return
	}
	if len(recipients) == 0 || len(recipients[0].DeviceTokens) == 0 {
		return
	}

	body := content
	if runes := []rune(body); len(runes) > pushPreviewLength {
		body = string(runes[:pushPreviewLength]) + "..."
	}
	stale, err := s.Notifier.Send(ctx, push.Notification{
		Tokens: recipients[0].DeviceTokens,
		Title:  sender.DisplayName(),
		Body:   body,
		Data:   map[string]string{"chatId": chat.ID.Hex()},
	})
	if err != nil {
		log.Warn().Err(err).Str("chatId", chat.ID.Hex()).Msg("Error while sending chat push")
		return
	}
	if len(stale) == 0 {
		return
	}
	if err := s.Doctors.RemoveDeviceTokens(ctx, recipientID, stale); err != nil {
		log.Warn().Err(err).Str("doctorId", recipientID.Hex()).Msg("Error from RemoveDeviceTokens")
	}
}

func (s *Services) populateParticipants(ctx context.Context, chats []*models.Chat) error {
	seen := map[primitive.ObjectID]bool{}
	var ids []primitive.ObjectID
	for _, c := range chats {
		for _, p := range c.Participants {
			if !seen[p] {
				seen[p] = true
				ids = append(ids, p)
			}
		}
	}
	if len(ids) == 0 {
		return nil
	}
	doctors, err := s.Doctors.FindDoctorsByIDs(ctx, ids)
	if err != nil {
		log.Error().Err(err).Msg("Error from FindDoctorsByIDs")
		return err
	}
	byID := make(map[primitive.ObjectID]models.DoctorSummary, len(doctors))
	for i := range doctors {
		byID[doctors[i].ID] = doctors[i].Summary()
	}
	for _, c := range chats {
		c.ParticipantDetails = make([]models.DoctorSummary, 0, len(c.Participants))
		for _, p := range c.Participants {
			if summary, ok := byID[p]; ok {
				c.ParticipantDetails = append(c.ParticipantDetails, summary)
			}
		}
	}
	return nil
}
