package cfn

import (
	"context"
	"sort"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudformation"
	cfntypes "github.com/aws/aws-sdk-go-v2/service/cloudformation/types"

	"github.com/pose/aws-cdk/internal/api"
)

// RecentEvents returns the stack's events newer than the given instant, in
// chronological order. The API pages newest-first; pagination stops as soon
// as a page crosses the cutoff. A stack that no longer exists yields an
// empty slice, since events are routinely fetched while a delete finishes.
func RecentEvents(ctx context.Context, client api.CloudFormation, stackName string, since time.Time) ([]cfntypes.StackEvent, error) {
	var events []cfntypes.StackEvent
	var nextToken *string
	for {
		out, err := client.DescribeStackEvents(ctx, &cloudformation.DescribeStackEventsInput{
			StackName: aws.String(stackName),
			NextToken: nextToken,
		})
		if err != nil {
			if IsStackNotFound(err) {
				return nil, nil
			}
			return nil, err
		}
		crossed := false
		for _, ev := range out.StackEvents {
			if ev.Timestamp == nil || !ev.Timestamp.After(since) {
				crossed = true
				break
			}
			events = append(events, ev)
		}
		nextToken = out.NextToken
		if crossed || nextToken == nil {
			break
		}
	}
	sort.SliceStable(events, func(i, j int) bool {
		return events[i].Timestamp.Before(*events[j].Timestamp)
	})
	return events, nil
}
