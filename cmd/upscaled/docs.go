package main

// General API documentation for swaggo. The rendered document lives in
// ../../docs and is served when built with -tags=swagger.
//
// @title           upscaled API
// @version         1.0
// @description     HTTP API for image super-resolution model selection and upscaling.
//
// @contact.name   upscaled maintainers
//
// @license.name   MIT
// @license.url    https://opensource.org/licenses/MIT
//
// @BasePath  /
//
// @schemes http
