package reconciler

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/service/ec2"
	"github.com/aws/aws-sdk-go/service/ec2/ec2iface"
	"github.com/pkg/errors"
)

// networkInterfaceIPs describes ids in one batch and returns their private
// IPs in the same order as ids.
func networkInterfaceIPs(ctx context.Context, svc ec2iface.EC2API, ids []string) ([]string, error) {
	// An empty id list would describe every interface in the region.
	if len(ids) == 0 {
		return []string{}, nil
	}

	out, err := svc.DescribeNetworkInterfacesWithContext(ctx, &ec2.DescribeNetworkInterfacesInput{
		NetworkInterfaceIds: aws.StringSlice(ids),
	})
	if err != nil {
		return nil, errors.Wrapf(err, "describing network interfaces %s", strings.Join(ids, ", "))
	}

	if len(out.NetworkInterfaces) != len(ids) {
		return nil, &ResolutionError{
			Message: fmt.Sprintf("Expected to get %d network interfaces, got %d", len(ids), len(out.NetworkInterfaces)),
		}
	}

	position := make(map[string]int, len(ids))
	for i, id := range ids {
		position[id] = i
	}

	ips := make([]string, len(ids))
	for _, ni := range out.NetworkInterfaces {
		id := aws.StringValue(ni.NetworkInterfaceId)

		i, ok := position[id]
		if !ok {
			return nil, &ResolutionError{
				NetworkInterfaceID: id,
				Message:            fmt.Sprintf("Network interface %s was not requested or was returned twice", id),
			}
		}
		delete(position, id)

		ip := aws.StringValue(ni.PrivateIpAddress)
		if ip == "" {
			return nil, &ResolutionError{
				NetworkInterfaceID: id,
				Message:            fmt.Sprintf("Network interface %s did not have a private IP", id),
			}
		}
		ips[i] = ip
	}

	return ips, nil
}
