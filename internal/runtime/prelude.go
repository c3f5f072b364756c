package runtime

// PreludeFile names the built-in declarations loaded ahead of every script.
const PreludeFile = "<prelude>"

const (
	throwableInterface = "Throwable"
	messageField       = "\x00*\x00message"
	lineField          = "\x00*\x00line"
)

// PreludeSource declares the exception hierarchy available to guest code.
const PreludeSource = `<?php
interface Throwable {}

trait ThrowableState {
    protected $message = "";
    protected $code = 0;
    protected $line = 0;

    public function __construct($message = "", $code = 0) {
        $this->message = $message;
        $this->code = $code;
    }

    public function getMessage() { return $this->message; }
    public function getCode() { return $this->code; }
    public function getLine() { return $this->line; }
}

class Exception implements Throwable { use ThrowableState; }
class Error implements Throwable { use ThrowableState; }

class ErrorException extends Exception {}
class RuntimeException extends Exception {}
class LogicException extends Exception {}
class InvalidArgumentException extends LogicException {}

class TypeError extends Error {}
class ValueError extends Error {}
class ArithmeticError extends Error {}
class DivisionByZeroError extends ArithmeticError {}
`
