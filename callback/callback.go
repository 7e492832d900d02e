// Package callback delivers custom resource responses to the pre-signed
// ResponseURL CloudFormation hands to every lifecycle event.
package callback

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/aws/aws-lambda-go/cfn"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// Report is the body CloudFormation expects on the ResponseURL.
type Report struct {
	Status             cfn.StatusType         `json:"Status"`
	StackID            string                 `json:"StackId"`
	RequestID          string                 `json:"RequestId"`
	LogicalResourceID  string                 `json:"LogicalResourceId"`
	PhysicalResourceID string                 `json:"PhysicalResourceId"`
	Reason             string                 `json:"Reason"`
	Data               map[string]interface{} `json:"Data,omitempty"`
}

// Reason points the operator at the function's log stream instead of
// carrying error detail through the callback.
func Reason(logGroup, logStream string) string {
	return "See the details in CloudWatch Log Group: " + logGroup + " Log Stream: " + logStream
}

// TransportError means the report never reached CloudFormation.
type TransportError struct {
	StatusCode int
	Err        error
}

func (e *TransportError) Error() string {
	if e.Err != nil {
		return "sending callback: " + e.Err.Error()
	}
	return fmt.Sprintf("sending callback: unexpected status %d", e.StatusCode)
}

func (e *TransportError) Unwrap() error { return e.Err }

type Client struct {
	http *http.Client
	log  *logrus.Entry
}

func NewClient(httpClient *http.Client, log *logrus.Entry) *Client {
	return &Client{
		http: httpClient,
		log:  log,
	}
}

// Send PUTs the report to responseURL exactly once. The pre-signed S3 URL is
// signed without a content type, so Content-Type is sent empty.
func (c *Client) Send(ctx context.Context, responseURL string, report *Report) error {
	body, err := json.Marshal(report)
	if err != nil {
		return errors.Wrap(err, "encoding callback")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, responseURL, bytes.NewReader(body))
	if err != nil {
		return &TransportError{Err: errors.Wrap(err, "building request")}
	}
	req.ContentLength = int64(len(body))
	req.Header["Content-Type"] = []string{""}

	log := c.log.WithFields(logrus.Fields{
		"status":               report.Status,
		"physical_resource_id": report.PhysicalResourceID,
		"callback_host":        req.URL.Host,
	})
	log.WithField("body", string(body)).Debug("sending callback")

	resp, err := c.http.Do(req)
	if err != nil {
		// url.Error repeats the signed URL; keep only the cause.
		var uerr *url.Error
		if errors.As(err, &uerr) {
			err = uerr.Err
		}
		terr := &TransportError{Err: err}
		log.WithField("error", terr).Error("callback delivery failed")
		return terr
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		terr := &TransportError{StatusCode: resp.StatusCode}
		log.WithField("error", terr).Error("callback delivery failed")
		return terr
	}

	log.Info("callback delivered")
	return nil
}
