package main

import (
	"log"
	"net/http"
	"os"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/aws/aws-lambda-go/lambdacontext"
	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/ec2"

	"github.com/monder/vpce-ip-lookup/callback"
	"github.com/monder/vpce-ip-lookup/config"
	"github.com/monder/vpce-ip-lookup/reconciler"
)

func main() {
	c, err := config.Load()
	if err != nil {
		log.Println("Unable to load config:", err)
		os.Exit(1)
	}

	logger, err := config.NewLogger(c.LogLevel, c.LogFormat)
	if err != nil {
		log.Println("Unable to configure logging:", err)
		os.Exit(1)
	}

	awsConfig := &aws.Config{}
	if c.Region != "" {
		awsConfig.Region = aws.String(c.Region)
	}
	sess, err := session.NewSession(awsConfig)
	if err != nil {
		logger.WithField("error", err).Error("unable to create aws session")
		os.Exit(1)
	}

	r := reconciler.New(
		ec2.New(sess),
		callback.NewClient(&http.Client{Timeout: c.CallbackTimeout}, logger),
		reconciler.LogLocation{
			Group:  lambdacontext.LogGroupName,
			Stream: lambdacontext.LogStreamName,
		},
		c.CallbackTimeout,
		logger.WithField("function", lambdacontext.FunctionName),
	)

	lambda.Start(r.Reconcile)
}
