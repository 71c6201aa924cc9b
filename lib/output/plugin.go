package output

// Plugin is an output plugin. It works on the generated bundle, after esbuild is done
// with module resolution and code generation.
type Plugin interface {
	Name() string
}

// OutputConfigurer is implemented by plugins that need to adjust the output targets
// before anything is built.
type OutputConfigurer interface {
	Plugin
	ConfigureOutputs(targets []*Options)
}

// BundleGenerator is implemented by plugins that inspect or extend the bundle before it
// is written to disk.
type BundleGenerator interface {
	Plugin
	GenerateBundle(opts *Options, bundle *Bundle) error
}
