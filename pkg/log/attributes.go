package log

// Model and operation context.
const (
	// ModelNameKey identifies the estimator type, e.g. "SimRegressor".
	ModelNameKey = "model.name"

	// OperationKey names the operation being performed.
	// Standard values: "fit", "predict", "fit_middle_update", "visualize".
	OperationKey = "ml.operation"

	// ComponentKey identifies the package performing the operation.
	ComponentKey = "ml.component"
)

// Data shape.
const (
	// SamplesKey is the number of samples (rows) in the dataset.
	SamplesKey = "data.samples"

	// FeaturesKey is the number of features (columns) in the dataset.
	FeaturesKey = "data.features"

	// BatchSizeKey is the mini-batch size used during refinement.
	BatchSizeKey = "data.batch_size"
)

// Training progress.
const (
	// MiddleIterKey is the current middle iteration of the refinement loop.
	MiddleIterKey = "train.middle_iter"

	// InnerIterKey is the current inner epoch of the refinement loop.
	InnerIterKey = "train.inner_iter"

	// ValLossKey is the held-out validation loss.
	ValLossKey = "train.val_loss"

	// DurationMsKey is the elapsed wall time in milliseconds.
	DurationMsKey = "perf.duration_ms"
)
