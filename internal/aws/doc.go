// Package aws implements the AWS account session used by the cost report.
//
// A Session is bound to one AWS account and one credential selection
// (ambient default chain or a named shared-config profile). It creates the
// aws.Config handle on first use and reuses it for every client:
//   - Budgets DescribeBudgets: actual and forecasted spend of the first budget
//   - EC2 DescribeInstances: count of instances that are not terminated
//
// Failures are reported as provider.UpstreamError carrying the smithy API
// error code when there is one.
//
// Example usage:
//
//	sess, err := aws.NewSession("123456789012", provider.NamedProfile("prod"), log)
//	if err != nil {
//		return err
//	}
//	cost, err := sess.MonthlyCost(ctx)
package aws
