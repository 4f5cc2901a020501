package services

import (
	"context"
	"strings"

	"Attentus/config/jwt"
	"Attentus/models"
	"Attentus/util"

	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/bson"
	"golang.org/x/crypto/bcrypt"
)

const maxVoiceSampleBytes = 10 << 20

/*
* Check length is at least 7
* Must have upperCase, number and special character
 */
func validatePasswordRules(password string) error {
	if len(password) < 7 {
		return util.Validation("password must be at least 7 characters long")
	}

	hasUpper, hasNumber, hasSpecial := false, false, false
	specialChars := "!@#$%^&*()-_=+[]{}|;:',.<>?/`~\"\\"

	for _, ch := range password {
		switch {
		case ch >= 'A' && ch <= 'Z':
			hasUpper = true
		case ch >= '0' && ch <= '9':
			hasNumber = true
		case strings.ContainsRune(specialChars, ch):
			hasSpecial = true
		}
	}

	if !hasUpper {
		return util.Validation("password must contain at least one uppercase letter")
	}
	if !hasNumber {
		return util.Validation("password must contain at least one number")
	}
	if !hasSpecial {
		return util.Validation("password must contain at least one special character")
	}
	return nil
}

func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

func verifyPassword(hash, password string) bool {
	if strings.TrimSpace(hash) == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// resolveName prefers firstName/lastName and falls back to the legacy single name field.
func resolveName(in models.Signup) (string, string) {
	first, last := strings.TrimSpace(in.FirstName), strings.TrimSpace(in.LastName)
	if first == "" && last == "" && strings.TrimSpace(in.Name) != "" {
		return models.SplitName(in.Name)
	}
	return first, last
}

/*
* Validate names, email, password rules, profession and template
* Reject an email that is already registered
* Hash the password and store the optional voice sample
* Save the doctor, issue a token and return both without the password
 */
func (s *Services) Signup(ctx context.Context, in models.Signup, voice *Upload) (*models.AuthResponse, error) {
	first, last := resolveName(in)
	if first == "" || last == "" {
		return nil, util.Validation(util.NAME_NOT_PROVIDED)
	}
	email := strings.ToLower(strings.TrimSpace(in.Email))
	if email == "" {
		return nil, util.Validation(util.EMAIL_NOT_PROVIDED)
	}
	if err := validatePasswordRules(in.Password); err != nil {
		return nil, err
	}
	profession := strings.TrimSpace(in.Profession)
	if profession == "" {
		return nil, util.Validation("profession is required")
	}
	if strings.TrimSpace(in.Template) == "" {
		return nil, util.Validation("template is required")
	}

	existing, err := s.Doctors.FindDoctorByEmail(ctx, email)
	if err != nil && !util.IsKind(err, util.KindNotFound) {
		log.Error().Err(err).Msg("Error from FindDoctorByEmail")
		return nil, err
	}
	if existing != nil {
		return nil, util.Validation(util.EMAIL_ALREADY_REGISTERED)
	}

	hash, err := HashPassword(in.Password)
	if err != nil {
		log.Error().Err(err).Msg("Error from HashPassword")
		return nil, err
	}

	now := s.now()
	doctor := &models.Doctor{
		FirstName:  first,
		LastName:   last,
		Email:      email,
		Password:   hash,
		Profession: profession,
		Template:   in.Template,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	var voicePath string
	if voice != nil && voice.Body != nil {
		if voice.Size > maxVoiceSampleBytes {
			return nil, util.Validation(util.FILE_TOO_LARGE)
		}
		obj, err := s.Blobs.Upload(ctx, util.ObjectPath(util.VoiceProfilePrefix, voice.Filename, now), voice.ContentType, voice.Body)
		if err != nil {
			log.Error().Err(err).Msg("Error while uploading voice sample")
			return nil, util.NewError(util.KindUploadFailed, "voice sample upload failed", err)
		}
		voicePath = obj.Path
		doctor.VoiceProfileURL = obj.PublicURL
	}

	if err := s.Doctors.CreateDoctor(ctx, doctor); err != nil {
		log.Error().Err(err).Str("email", email).Msg("Error from CreateDoctor")
		if voicePath != "" {
			s.discardBlob(ctx, voicePath)
		}
		return nil, err
	}

	token, err := jwt.GenerateJWT(doctor.ID.Hex())
	if err != nil {
		log.Error().Err(err).Msg("Error from GenerateJWT")
		return nil, err
	}
	doctor.Password = ""
	log.Info().Str("doctorId", doctor.ID.Hex()).Msg("Doctor signed up")
	return &models.AuthResponse{Doctor: doctor, Token: token}, nil
}

/*
* Refuse while the failure counter for the email is at the limit
* Unknown email and wrong password look the same to the caller
* Each failure bumps the counter; a success clears it
 */
func (s *Services) Login(ctx context.Context, in models.Login) (*models.AuthResponse, error) {
	email := strings.ToLower(strings.TrimSpace(in.Email))
	key := util.LoginFailKey + email
	cache := s.cache()

	var failures int64
	if _, err := cache.GetCache(ctx, key, &failures); err != nil {
		log.Warn().Err(err).Msg("Error from GetCache for login attempts")
	}
	if failures >= util.MaxLoginAttempts {
		return nil, util.Unauthenticated(util.TOO_MANY_LOGIN_ATTEMPTS)
	}

	fail := func() error {
		if _, err := cache.Increment(ctx, key, util.LoginFailWindow); err != nil {
			log.Warn().Err(err).Msg("Error while counting failed login")
		}
		return util.Unauthenticated(util.INVALID_CREDENTIALS)
	}

	doctor, err := s.Doctors.FindDoctorByEmail(ctx, email)
	if err != nil {
		if util.IsKind(err, util.KindNotFound) {
			return nil, fail()
		}
		log.Error().Err(err).Msg("Error from FindDoctorByEmail")
		return nil, err
	}
	if !verifyPassword(doctor.Password, in.Password) {
		return nil, fail()
	}

	if err := cache.DeleteCache(ctx, key); err != nil {
		log.Warn().Err(err).Msg("Error from DeleteCache for login attempts")
	}

	token, err := jwt.GenerateJWT(doctor.ID.Hex())
	if err != nil {
		log.Error().Err(err).Msg("Error from GenerateJWT")
		return nil, err
	}
	doctor.Password = ""
	return &models.AuthResponse{Doctor: doctor, Token: token}, nil
}

/*
* Verify the current password against the stored hash
* New and confirm must match and follow the password rules
* Store the new hash
 */
func (s *Services) ResetPassword(ctx context.Context, doctor *models.Doctor, in models.ResetPassword) error {
	if in.NewPassword != in.ConfirmPassword {
		return util.Validation("newPassword and confirmPassword do not match")
	}
	if err := validatePasswordRules(in.NewPassword); err != nil {
		return err
	}

	stored, err := s.Doctors.FindDoctorByEmail(ctx, doctor.Email)
	if err != nil {
		log.Error().Err(err).Msg("Error from FindDoctorByEmail in ResetPassword")
		return err
	}
	if !verifyPassword(stored.Password, in.CurrentPassword) {
		return util.Unauthenticated(util.INVALID_CREDENTIALS)
	}

	hash, err := HashPassword(in.NewPassword)
	if err != nil {
		log.Error().Err(err).Msg("Error from HashPassword")
		return err
	}
	if _, err := s.Doctors.UpdateDoctor(ctx, doctor.ID, bson.M{"password": hash}); err != nil {
		log.Error().Err(err).Msg("Error from UpdateDoctor in ResetPassword")
		return err
	}
	return nil
}
