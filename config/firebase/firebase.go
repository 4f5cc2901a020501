package firebase

import (
	"context"
	"fmt"

	firebase "firebase.google.com/go/v4"
	"github.com/rs/zerolog/log"
	"google.golang.org/api/option"
)

var App *firebase.App

/*
* Initialise the process wide firebase app
* Use the service account file when given, else application default credentials
* The storage bucket becomes the app's default bucket
 */
func Init(ctx context.Context, credentialsFile, bucket string) (*firebase.App, error) {
	conf := &firebase.Config{StorageBucket: bucket}

	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	} else {
		log.Info().Msg("FIREBASE_ADMIN_CREDENTIALS not set, using application default credentials")
	}

	app, err := firebase.NewApp(ctx, conf, opts...)
	if err != nil {
		return nil, fmt.Errorf("while initialising firebase app: %w", err)
	}
	App = app
	log.Info().Str("bucket", bucket).Msg("Firebase app initialised")
	return app, nil
}
