package reconciler

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/aws/aws-lambda-go/cfn"
	"github.com/aws/aws-sdk-go/service/ec2/ec2iface"
	"github.com/sirupsen/logrus"

	"github.com/monder/vpce-ip-lookup/callback"
)

// NetworkInterfaceIPsKey is the attribute templates read with
// Fn::GetAtt [Resource, NetworkInterfaceIps].
const NetworkInterfaceIPsKey = "NetworkInterfaceIps"

type Reconciler interface {
	Reconcile(context.Context, Event) error
}

type Reporter interface {
	Send(ctx context.Context, responseURL string, report *callback.Report) error
}

// Event is a CloudFormation custom resource request.
type Event struct {
	RequestType        cfn.RequestType `json:"RequestType"`
	ServiceToken       string          `json:"ServiceToken"`
	ResponseURL        string          `json:"ResponseURL"`
	StackID            string          `json:"StackId"`
	RequestID          string          `json:"RequestId"`
	LogicalResourceID  string          `json:"LogicalResourceId"`
	PhysicalResourceID string          `json:"PhysicalResourceId,omitempty"`
	ResourceType       string          `json:"ResourceType"`
	ResourceProperties Properties      `json:"ResourceProperties"`
}

type Properties struct {
	ServiceToken  string `json:"ServiceToken"`
	VpcEndpointID string `json:"VpcEndpointId"`
	// TargetSlots is the number of target group members the template binds
	// the result to. CloudFormation passes it as a string.
	TargetSlots string `json:"TargetSlots,omitempty"`
}

func (p Properties) validate() error {
	if p.VpcEndpointID == "" {
		return &ValidationError{Field: "ResourceProperties.VpcEndpointId", Message: "ResourceProperties.VpcEndpointId is required"}
	}
	if strings.TrimSpace(p.VpcEndpointID) != p.VpcEndpointID {
		return &ValidationError{Field: "ResourceProperties.VpcEndpointId", Message: "ResourceProperties.VpcEndpointId must not have surrounding whitespace, got " + strconv.Quote(p.VpcEndpointID)}
	}
	_, err := p.targetSlots()
	return err
}

// targetSlots returns 0 when no slot count was declared.
func (p Properties) targetSlots() (int, error) {
	if p.TargetSlots == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(p.TargetSlots)
	if err != nil || n <= 0 {
		return 0, &ValidationError{Field: "ResourceProperties.TargetSlots", Message: "ResourceProperties.TargetSlots must be a positive integer, got " + strconv.Quote(p.TargetSlots)}
	}
	return n, nil
}

// fields are safe to log; the ResponseURL is a bearer credential.
func (e Event) fields() logrus.Fields {
	return logrus.Fields{
		"request_type":         e.RequestType,
		"request_id":           e.RequestID,
		"stack_id":             e.StackID,
		"logical_resource_id":  e.LogicalResourceID,
		"physical_resource_id": e.PhysicalResourceID,
		"resource_type":        e.ResourceType,
		"vpc_endpoint_id":      e.ResourceProperties.VpcEndpointID,
	}
}

// Result is the ordered set of private IPs behind one endpoint.
type Result struct {
	NetworkInterfaceIPs []string
}

// LogLocation names the CloudWatch log group and stream of the running
// function. It is echoed in every report's Reason.
type LogLocation struct {
	Group  string
	Stream string
}

type endpointReconciler struct {
	ec2             ec2iface.EC2API
	reporter        Reporter
	logs            LogLocation
	callbackTimeout time.Duration
	log             *logrus.Entry
}
