package reconciler

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/service/ec2"
	"github.com/aws/aws-sdk-go/service/ec2/ec2iface"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// Lookup resolves the private IPs of the network interfaces attached to one
// interface VPC endpoint, in the order EC2 lists the interfaces.
func Lookup(ctx context.Context, svc ec2iface.EC2API, log *logrus.Entry, vpcEndpointID string) (*Result, error) {
	log = log.WithField("vpc_endpoint_id", vpcEndpointID)
	log.Info("fetching vpc endpoint ips")

	ids, err := networkInterfaceIDs(ctx, svc, vpcEndpointID)
	if err != nil {
		return nil, err
	}
	log.WithField("network_interface_ids", ids).Info("got network interface ids")

	ips, err := networkInterfaceIPs(ctx, svc, ids)
	if err != nil {
		return nil, err
	}
	log.WithField("ips", ips).Info("got ips")

	return &Result{NetworkInterfaceIPs: ips}, nil
}

func networkInterfaceIDs(ctx context.Context, svc ec2iface.EC2API, vpcEndpointID string) ([]string, error) {
	out, err := svc.DescribeVpcEndpointsWithContext(ctx, &ec2.DescribeVpcEndpointsInput{
		VpcEndpointIds: aws.StringSlice([]string{vpcEndpointID}),
	})
	if err != nil {
		return nil, errors.Wrapf(err, "describing VPC Endpoint %s", vpcEndpointID)
	}

	if len(out.VpcEndpoints) != 1 {
		return nil, &LookupError{
			VpcEndpointID: vpcEndpointID,
			Message:       fmt.Sprintf("Expected to find 1 VPC Endpoint with ID %s, found %d", vpcEndpointID, len(out.VpcEndpoints)),
		}
	}

	endpoint := out.VpcEndpoints[0]
	if endpoint.NetworkInterfaceIds == nil {
		return nil, &LookupError{
			VpcEndpointID: vpcEndpointID,
			Message:       fmt.Sprintf("Network interface IDs not returned for VPC Endpoint %s", vpcEndpointID),
		}
	}

	return aws.StringValueSlice(endpoint.NetworkInterfaceIds), nil
}
