package reconciler

import (
	"context"
	"time"

	"github.com/aws/aws-lambda-go/cfn"
	"github.com/aws/aws-sdk-go/service/ec2/ec2iface"
	"github.com/sirupsen/logrus"

	"github.com/monder/vpce-ip-lookup/callback"
)

// New builds the reconciler. callbackTimeout bounds the report PUT and is
// held back from the invocation deadline so the lookup cannot use it up.
func New(svc ec2iface.EC2API, reporter Reporter, logs LogLocation, callbackTimeout time.Duration, log *logrus.Entry) Reconciler {
	return &endpointReconciler{
		ec2:             svc,
		reporter:        reporter,
		logs:            logs,
		callbackTimeout: callbackTimeout,
		log:             log,
	}
}

// Reconcile handles one lifecycle event and reports its outcome to the
// event's ResponseURL exactly once. A failed lookup is reported as FAILED and
// also returned, so the invocation fails too.
func (r *endpointReconciler) Reconcile(ctx context.Context, event Event) error {
	log := r.log.WithFields(event.fields())
	log.Info("received event")

	if event.ResponseURL == "" {
		err := &ValidationError{Field: "ResponseURL", Message: "ResponseURL is required"}
		log.WithField("error", err).Error("cannot report without a response url")
		return err
	}

	switch event.RequestType {
	case cfn.RequestCreate, cfn.RequestUpdate:
		lookupCtx := ctx
		if deadline, ok := ctx.Deadline(); ok {
			var cancel context.CancelFunc
			lookupCtx, cancel = context.WithDeadline(ctx, deadline.Add(-r.callbackTimeout))
			defer cancel()
		}

		result, err := r.lookup(lookupCtx, log, event.ResourceProperties)
		if err != nil {
			return r.fail(ctx, log, event, err)
		}

		event.PhysicalResourceID = event.ResourceProperties.VpcEndpointID
		return r.respond(ctx, event, cfn.StatusSuccess, map[string]interface{}{
			NetworkInterfaceIPsKey: result.NetworkInterfaceIPs,
		})

	case cfn.RequestDelete:
		// The endpoint belongs to its own declaration; nothing to remove here.
		log.Info("nothing to delete")
		event.PhysicalResourceID = ""
		return r.respond(ctx, event, cfn.StatusSuccess, nil)

	default:
		return r.fail(ctx, log, event, &ValidationError{
			Field:   "RequestType",
			Message: "unsupported RequestType " + string(event.RequestType),
		})
	}
}

func (r *endpointReconciler) lookup(ctx context.Context, log *logrus.Entry, props Properties) (*Result, error) {
	if err := props.validate(); err != nil {
		return nil, err
	}

	result, err := Lookup(ctx, r.ec2, log, props.VpcEndpointID)
	if err != nil {
		return nil, err
	}

	slots, _ := props.targetSlots()
	if slots > 0 && slots != len(result.NetworkInterfaceIPs) {
		return nil, &ConfigurationError{Slots: slots, Resolved: len(result.NetworkInterfaceIPs)}
	}

	return result, nil
}

// fail reports err as FAILED. A delivery error takes precedence since
// CloudFormation never heard about the failure.
func (r *endpointReconciler) fail(ctx context.Context, log *logrus.Entry, event Event, err error) error {
	log.WithField("error", err).Error("reconcile failed")

	if rerr := r.respond(ctx, event, cfn.StatusFailed, map[string]interface{}{
		"message": err.Error(),
	}); rerr != nil {
		return rerr
	}
	return err
}

// respond sends on its own deadline: an expired lookup must not stop the
// report from going out.
func (r *endpointReconciler) respond(ctx context.Context, event Event, status cfn.StatusType, data map[string]interface{}) error {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.callbackTimeout)
	defer cancel()

	physicalResourceID := event.PhysicalResourceID
	if physicalResourceID == "" {
		physicalResourceID = r.logs.Stream
	}

	return r.reporter.Send(ctx, event.ResponseURL, &callback.Report{
		Status:             status,
		StackID:            event.StackID,
		RequestID:          event.RequestID,
		LogicalResourceID:  event.LogicalResourceID,
		PhysicalResourceID: physicalResourceID,
		Reason:             callback.Reason(r.logs.Group, r.logs.Stream),
		Data:               data,
	})
}
