// Package storagealert is a Cloud Function that logs Cloud Storage events.
//
// The function is registered with the Functions Framework under
// FunctionName; deploy with --entry-point=fileStorageAlert, or run it locally
// with cmd/host.
package storagealert

import (
	"context"

	"github.com/GoogleCloudPlatform/functions-framework-go/functions"
	"github.com/cloudevents/sdk-go/v2/event"

	"storage-alert/internal/handler"
	"storage-alert/pkg/logging"
)

const FunctionName = "fileStorageAlert"

func init() {
	functions.CloudEvent(FunctionName, FileStorageAlert)
}

// FileStorageAlert logs e through the process logger.
func FileStorageAlert(ctx context.Context, e event.Event) error {
	return handler.New(logging.Logger()).HandleEvent(ctx, e)
}
