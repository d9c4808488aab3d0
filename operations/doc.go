/*
Package operations runs deployment steps in a traceable, resumable way.

An Operation is one step with at most one side effect, for example deploying a contract.
A Sequence groups operations. ExecuteOperation and ExecuteSequence record a Report for every
run in a Reporter; when a successful report with the same definition and input already
exists, its result is returned and the step is not executed again. Persisting the reports
between runs therefore lets a failed migration resume where it stopped.

	op := operations.NewOperation("deploy-implementation", semver.MustParse("1.0.0"),
		"Deploys the implementation contract", handler)

	b := operations.NewBundle(context.Background, lggr, operations.NewMemoryReporter())
	report, err := operations.ExecuteOperation(b, op, deps, input)
*/
package operations
