package utils

import (
	"context"
	"log"
	"os"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/rekognition"
	"github.com/aws/aws-sdk-go-v2/service/rekognition/types"
)

var rekClient *rekognition.Client

// must be called once at startup (e.g. in main.go)
func InitRekognition() {
	awsRegion := os.Getenv("AWS_REGION")
	if awsRegion == "" {
		log.Fatal("AWS_REGION not set")
	}
	cfg, err := config.LoadDefaultConfig(context.TODO(),
		config.WithRegion(awsRegion),
	)
	if err != nil {
		log.Fatalf("unable to load AWS config: %v", err)
	}
	rekClient = rekognition.NewFromConfig(cfg)
}

// RekClient returns the initialized Rekognition client
func RekClient() *rekognition.Client {
	if rekClient == nil {
		InitRekognition()
	}
	return rekClient
}

// ModerateProfilePhoto returns the moderation labels Rekognition flags on an
// uploaded profile image. An empty slice means the photo is acceptable.
func ModerateProfilePhoto(imageData []byte) ([]string, error) {
	out, err := RekClient().DetectModerationLabels(context.TODO(), &rekognition.DetectModerationLabelsInput{
		Image:         &types.Image{Bytes: imageData},
		MinConfidence: aws.Float32(75),
	})
	if err != nil {
		return nil, err
	}

	var labels []string
	for _, l := range out.ModerationLabels {
		labels = append(labels, *l.Name)
	}
	return labels, nil
}
