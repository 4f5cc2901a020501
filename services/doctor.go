package services

import (
	"context"
	"strings"

	"Attentus/models"
	"Attentus/util"

	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/bson"
)

const maxSignatureBytes = 5 << 20

/*
* Trim the fields that were provided
* Names, profession and template cannot be set to empty
* Email is not editable and is never part of the update
 */
func (s *Services) UpdateProfile(ctx context.Context, doctor *models.Doctor, in models.DoctorUpdate) (*models.Doctor, error) {
	set := bson.M{}
	required := []struct {
		field string
		value *string
	}{
		{"firstName", in.FirstName},
		{"lastName", in.LastName},
		{"profession", in.Profession},
	}
	for _, r := range required {
		if r.value == nil {
			continue
		}
		v := strings.TrimSpace(*r.value)
		if v == "" {
			return nil, util.Validation(r.field + " cannot be empty")
		}
		set[r.field] = v
	}
	if in.Template != nil {
		if strings.TrimSpace(*in.Template) == "" {
			return nil, util.Validation("template cannot be empty")
		}
		set["template"] = *in.Template
	}
	if in.SignatureURL != nil {
		set["signatureUrl"] = strings.TrimSpace(*in.SignatureURL)
	}
	if len(set) == 0 {
		return doctor, nil
	}

	updated, err := s.Doctors.UpdateDoctor(ctx, doctor.ID, set)
	if err != nil {
		log.Error().Err(err).Str("doctorId", doctor.ID.Hex()).Msg("Error from UpdateDoctor")
		return nil, err
	}
	return updated, nil
}

/*
* Only images up to 5 MB are accepted
* Store under signatures/ and point the profile at it
 */
func (s *Services) UploadSignature(ctx context.Context, doctor *models.Doctor, file *Upload) (*models.Doctor, error) {
	if file == nil || file.Body == nil {
		return nil, util.Validation("signature file is required")
	}
	if !strings.HasPrefix(file.ContentType, "image/") {
		return nil, util.Validation(util.SIGNATURE_NOT_IMAGE)
	}
	if file.Size > maxSignatureBytes {
		return nil, util.Validation(util.FILE_TOO_LARGE)
	}

	obj, err := s.Blobs.Upload(ctx, util.ObjectPath(util.SignaturePrefix, file.Filename, s.now()), file.ContentType, file.Body)
	if err != nil {
		log.Error().Err(err).Msg("Error while uploading signature")
		return nil, util.NewError(util.KindUploadFailed, "signature upload failed", err)
	}

	updated, err := s.Doctors.UpdateDoctor(ctx, doctor.ID, bson.M{"signatureUrl": obj.PublicURL})
	if err != nil {
		log.Error().Err(err).Msg("Error from UpdateDoctor for signature")
		s.discardBlob(ctx, obj.Path)
		return nil, err
	}
	return updated, nil
}

func (s *Services) RegisterDeviceToken(ctx context.Context, doctor *models.Doctor, token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return util.Validation(util.DEVICE_TOKEN_NOT_PROVIDED)
	}
	if err := s.Doctors.AddDeviceToken(ctx, doctor.ID, token); err != nil {
		log.Error().Err(err).Msg("Error from AddDeviceToken")
		return err
	}
	return nil
}

func (s *Services) ListDoctors(ctx context.Context) ([]models.Doctor, error) {
	doctors, err := s.Doctors.ListDoctors(ctx)
	if err != nil {
		log.Error().Err(err).Msg("Error from ListDoctors")
		return nil, err
	}
	return doctors, nil
}
