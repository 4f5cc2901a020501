package util

import "time"

// Collections
const (
	DoctorCollection      = "doctors"
	PatientCollection     = "patients"
	AppointmentCollection = "appointments"
	ChatCollection        = "chats"
)

// Cache keys
const (
	DoctorKey    = "DOCTOR:"
	LoginFailKey = "LOGIN_FAIL:"
)

const (
	DoctorCacheTTL   = 10 * time.Minute
	LoginFailWindow  = 15 * time.Minute
	MaxLoginAttempts = 5
)

// Storage prefixes
const (
	RecordingPrefix    = "recordings/"
	VoiceProfilePrefix = "voiceProfiles/"
	SignaturePrefix    = "signatures/"
)

// Gin context keys
const (
	DoctorContextKey = "doctor"
	CodeContextKey   = "code"
	RequestIDKey     = "requestId"
)

// Messages
const (
	NO_TOKEN_PROVIDED                   = "no token provided"
	NOT_AUTHORIZED                      = "not authorized"
	INVALID_CREDENTIALS                 = "invalid credentials"
	TOO_MANY_LOGIN_ATTEMPTS             = "too many failed login attempts, try again later"
	EMAIL_ALREADY_REGISTERED            = "email is already registered"
	EMAIL_NOT_PROVIDED                  = "email is required"
	NAME_NOT_PROVIDED                   = "firstName and lastName are required"
	INVALID_ID                          = "invalid id"
	DOCTOR_NOT_FOUND                    = "doctor not found"
	PATIENT_NOT_FOUND                   = "patient not found"
	APPOINTMENT_NOT_FOUND               = "appointment not found"
	CHAT_NOT_FOUND                      = "chat not found"
	PATIENT_NOT_VISIBLE                 = "not authorized to view this patient"
	PATIENT_NOT_OWNED                   = "only the creating doctor can modify this patient"
	APPOINTMENT_NOT_OWNED               = "not authorized to access this appointment"
	APPOINTMENT_CANCEL_FORBIDDEN        = "not authorized to cancel this appointment"
	CHAT_NOT_PARTICIPANT                = "not a participant of this chat"
	CHAT_WITH_SELF                      = "cannot start a chat with yourself"
	MESSAGE_CONTENT_REQUIRED            = "message content is required"
	INVALID_SEX                         = "sex must be one of Male, Female, Other"
	INVALID_DATE                        = "invalid date"
	DATE_OF_BIRTH_IN_FUTURE             = "dateOfBirth cannot be in the future"
	INVALID_MEASUREMENT                 = "weight and height must be positive numbers"
	TITLE_NOT_PROVIDED                  = "title is required"
	AUDIO_NOT_PROVIDED                  = "audio file is required"
	FILE_TOO_LARGE                      = "file exceeds maximum allowed size"
	SIGNATURE_NOT_IMAGE                 = "signature must be an image"
	ILLEGAL_STATUS_TRANSITION           = "appointment status cannot move backwards"
	TRANSCRIPT_NOT_AVAILABLE            = "appointment has no transcript yet"
	DEVICE_TOKEN_NOT_PROVIDED           = "device token is required"
	UNABLE_TO_FETCH_DOCTOR_FROM_CONTEXT = "unable to fetch doctor from context"
	PASSWORD_UPDATED                    = "password updated"
	PATIENT_DELETED                     = "patient deleted"
	APPOINTMENT_DELETED                 = "appointment deleted"
	DEVICE_TOKEN_REGISTERED             = "device token registered"
)
