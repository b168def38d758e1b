// Package serializer reads and writes recipectl documents.
//
// Four formats are supported:
//   - JSON: indented, machine readable
//   - YAML: the native format for definitions and package info
//   - TOML: an alternative for hand written definitions
//   - Table: flattened FIELD/VALUE rows for terminals (write only)
//
// Writing:
//
//	w, err := serializer.NewFileWriterOrStdout(serializer.FormatYAML, path)
//	if err != nil {
//		return err
//	}
//	defer w.Close()
//	return w.Serialize(ctx, recipe)
//
// Reading:
//
//	def, err := serializer.FromFile[recipe.Definition](path, serializer.WithStrict())
//
// WriteFileAtomic is used by the package registry so that a crash never
// leaves a half written package.yaml behind.
package serializer
