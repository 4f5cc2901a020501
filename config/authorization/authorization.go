package authorization

import (
	"context"
	"errors"
	"strings"

	"Attentus/config/jwt"
	"Attentus/models"
	"Attentus/util"

	coreauth "github.com/KanapuramVaishnavi/Core/config/authorization"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

// DoctorLookup resolves the doctor named by a token subject.
type DoctorLookup interface {
	FindDoctorByID(ctx context.Context, id string) (*models.Doctor, error)
}

/*
* Read the bearer token from the Authorization header
* Validate it and resolve the doctor it names
* Bind the doctor and its id to the context, else abort with 401
 */
func JWTAuth(doctors DoctorLookup) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := coreauth.ExtractTokenFromHeader(c)
		if err != nil || strings.TrimSpace(token) == "" {
			util.Fail(c, util.Unauthenticated(util.NO_TOKEN_PROVIDED))
			return
		}

		doctorID, err := jwt.ParseJWT(strings.TrimSpace(token))
		if err != nil {
			log.Debug().Err(err).Msg("Rejected token")
			util.Fail(c, util.Unauthenticated(util.NOT_AUTHORIZED))
			return
		}

		doctor, err := doctors.FindDoctorByID(c.Request.Context(), doctorID)
		if err != nil {
			if !util.IsKind(err, util.KindNotFound) && !util.IsKind(err, util.KindValidation) {
				log.Error().Err(err).Str("doctorId", doctorID).Msg("Error while resolving token subject")
			}
			util.Fail(c, util.Unauthenticated(util.NOT_AUTHORIZED))
			return
		}

		doctor.Password = ""
		c.Set(util.DoctorContextKey, doctor)
		c.Set(util.CodeContextKey, doctor.ID.Hex())
		c.Next()
	}
}

// CurrentDoctor returns the doctor bound by JWTAuth.
func CurrentDoctor(c *gin.Context) (*models.Doctor, error) {
	v, ok := c.Get(util.DoctorContextKey)
	if !ok {
		return nil, util.Unauthenticated(util.UNABLE_TO_FETCH_DOCTOR_FROM_CONTEXT)
	}
	doctor, ok := v.(*models.Doctor)
	if !ok || doctor == nil {
		return nil, util.NewError(util.KindUnauthenticated, util.UNABLE_TO_FETCH_DOCTOR_FROM_CONTEXT, errors.New("unexpected context value"))
	}
	return doctor, nil
}
