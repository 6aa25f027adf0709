// Package azure implements the Azure subscription session used by the cost report.
//
// A Session authenticates with DefaultAzureCredential on first use and
// shares that credential between two clients:
//   - Cost Management Usage: month-to-date ActualCost summed over daily rows
//   - Compute VirtualMachines ListAll: number of VMs in the subscription
//
// Azure has no budget forecast equivalent to the AWS Budgets API, so the
// forecast is a run-rate projection: month-to-date spend divided by the days
// elapsed, times the days in the month.
//
// Example usage:
//
//	sess, err := azure.NewSession("00000000-0000-0000-0000-000000000000", provider.Ambient(), log)
//	if err != nil {
//		return err
//	}
//	cost, err := sess.MonthlyCost(ctx)
package azure
