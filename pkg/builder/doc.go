// Package builder drives the native build tool that produces package
// contents.
//
// The Builder interface has three blocking operations: Configure, Build
// and Install. CMake implements it by running the cmake executable:
//
//	cmake -S <src> -B <build> -DUSE_CONAN=OFF -DWITH_BOOST=ON
//	cmake --build <build>
//	cmake --install <build> --prefix <staging>
//
// Output of every command is forwarded to slog, stdout at debug level and
// stderr at info level. A non-zero exit status is returned as an error.
//
// VariableName and Variables translate resolved option names into the
// build tool's upper case variable convention.
package builder
