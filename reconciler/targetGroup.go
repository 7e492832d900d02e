package reconciler

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/service/elbv2"
	"github.com/aws/aws-sdk-go/service/elbv2/elbv2iface"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// BindTargets binds ips to exactly slots IP targets on port, slot i taking
// ips[i]. Nothing is sorted: slot order follows lookup order.
func BindTargets(ips []string, slots int, port int64) ([]*elbv2.TargetDescription, error) {
	if len(ips) != slots {
		return nil, &ConfigurationError{Slots: slots, Resolved: len(ips)}
	}
	if port < 1 || port > 65535 {
		return nil, errors.Errorf("invalid target port %d", port)
	}

	targets := make([]*elbv2.TargetDescription, 0, slots)
	for _, ip := range ips {
		targets = append(targets, &elbv2.TargetDescription{
			Id:   aws.String(ip),
			Port: aws.Int64(port),
		})
	}
	return targets, nil
}

type SyncResult struct {
	Registered   []*elbv2.TargetDescription
	Deregistered []*elbv2.TargetDescription
}

// TargetGroupSyncer makes a target group's membership equal a desired set of
// IP targets.
type TargetGroupSyncer struct {
	elbv2  elbv2iface.ELBV2API
	log    *logrus.Entry
	dryRun bool
}

func NewTargetGroupSyncer(svc elbv2iface.ELBV2API, log *logrus.Entry, dryRun bool) *TargetGroupSyncer {
	return &TargetGroupSyncer{
		elbv2:  svc,
		log:    log,
		dryRun: dryRun,
	}
}

func targetKey(td *elbv2.TargetDescription) string {
	return fmt.Sprintf("%s:%d", aws.StringValue(td.Id), aws.Int64Value(td.Port))
}

func (s *TargetGroupSyncer) Sync(ctx context.Context, targetGroupARN string, desired []*elbv2.TargetDescription) (*SyncResult, error) {
	log := s.log.WithField("target_group_arn", targetGroupARN)

	want := make(map[string]*elbv2.TargetDescription, len(desired))
	for _, td := range desired {
		want[targetKey(td)] = td
	}

	result, err := s.elbv2.DescribeTargetHealthWithContext(ctx, &elbv2.DescribeTargetHealthInput{
		TargetGroupArn: aws.String(targetGroupARN),
	})
	if err != nil {
		return nil, errors.Wrapf(err, "describing target health of %s", targetGroupARN)
	}

	res := &SyncResult{
		Registered:   make([]*elbv2.TargetDescription, 0),
		Deregistered: make([]*elbv2.TargetDescription, 0),
	}

	// Draining targets are on their way out and have to be registered again.
	current := make(map[string]bool, len(result.TargetHealthDescriptions))
	for _, th := range result.TargetHealthDescriptions {
		key := targetKey(th.Target)
		if _, keep := want[key]; !keep {
			res.Deregistered = append(res.Deregistered, th.Target)
			continue
		}
		if th.TargetHealth != nil && aws.StringValue(th.TargetHealth.State) == elbv2.TargetHealthStateEnumDraining {
			continue
		}
		current[key] = true
	}

	for _, td := range desired {
		if !current[targetKey(td)] {
			res.Registered = append(res.Registered, td)
		}
	}

	log.WithFields(
		logrus.Fields{
			"targets": targetKeys(res.Deregistered),
		},
	).Info("deregistering")

	log.WithFields(
		logrus.Fields{
			"targets": targetKeys(res.Registered),
		},
	).Info("registering")

	if s.dryRun {
		log.Info("dry run, target group left unchanged")
		return res, nil
	}

	// Register
	if len(res.Registered) > 0 {
		_, err = s.elbv2.RegisterTargetsWithContext(ctx, &elbv2.RegisterTargetsInput{
			TargetGroupArn: aws.String(targetGroupARN),
			Targets:        res.Registered,
		})
		if err != nil {
			return nil, errors.Wrap(err, "registering targets")
		}
	}

	// Deregister
	if len(res.Deregistered) > 0 {
		_, err = s.elbv2.DeregisterTargetsWithContext(ctx, &elbv2.DeregisterTargetsInput{
			TargetGroupArn: aws.String(targetGroupARN),
			Targets:        res.Deregistered,
		})
		if err != nil {
			return nil, errors.Wrap(err, "deregistering targets")
		}
	}

	log.Info("finished syncing target group")
	return res, nil
}

func targetKeys(tds []*elbv2.TargetDescription) []string {
	keys := make([]string, 0, len(tds))
	for _, td := range tds {
		keys = append(keys, targetKey(td))
	}
	return keys
}
