// Package harness renders the generated test cases into a self-contained
// Java probe program.
//
// The probe constructs a fresh subject per test case, replays the setup
// operations, invokes the operation under test, and prints one PASS/FAIL
// line per case between the protocol's sentinel markers. Every case is
// wrapped in its own try/catch so a crash in one cannot stop the rest.
package harness

import (
	"fmt"
	"strings"

	"github.com/Sankatt/cruisegrader/internal/protocol"
	"github.com/Sankatt/cruisegrader/internal/testgen"
)

// ClassName is the name of the synthesized probe class.
const ClassName = "RigorousGraderTest"

// FileName is the probe's source file name.
const FileName = ClassName + ".java"

// PackageName is the Java package the probe (and the subject) live in.
const PackageName = "es.upm.grise.profundizacion.cruiseControl"

// mockSpeedReading is the constant value returned by the speedometer mock.
// The collaborator is fixed and not part of what is graded.
const mockSpeedReading = 50

// speedometerMock is the inline anonymous implementation of the collaborator
// interface handed to every subject constructor.
var speedometerMock = fmt.Sprintf(
	"new Speedometer() { public int getCurrentSpeed() { return %d; } }", mockSpeedReading)

// Render produces the complete probe source for the given test cases.
func Render(cases []testgen.TestCase) string {
	var b strings.Builder

	fmt.Fprintf(&b, "package %s;\n\n", PackageName)
	fmt.Fprintf(&b, "public class %s {\n", ClassName)
	b.WriteString("    public static void main(String[] args) {\n")
	fmt.Fprintf(&b, "        System.out.println(%q);\n\n", protocol.MarkerStart)

	for _, tc := range cases {
		renderCase(&b, tc)
	}

	fmt.Fprintf(&b, "        System.out.println(%q);\n", protocol.MarkerEnd)
	b.WriteString("    }\n")
	b.WriteString("}\n")

	return b.String()
}

// renderCase emits the probe block for one test case.
//
// Layout: an outer try/catch absorbs construction and setup failures
// (always unexpected); an inner try/catch around the probe distinguishes
// the expected exception from wrong or missing ones, and checks the
// state-preservation postcondition while the subject is still in scope.
func renderCase(b *strings.Builder, tc testgen.TestCase) {
	fmt.Fprintf(b, "        // %s: %s\n", tc.ID, tc.Description)
	b.WriteString("        try {\n")
	fmt.Fprintf(b, "            CruiseControl cc = new CruiseControl(%s);\n", speedometerMock)
	for _, op := range tc.Setup {
		fmt.Fprintf(b, "            cc.%s(%d);\n", op.Method, op.Arg)
	}

	if tc.Expected == testgen.OutcomeException {
		renderExceptionProbe(b, tc)
	} else {
		renderSuccessProbe(b, tc)
	}

	b.WriteString("        } catch (Throwable e) {\n")
	fmt.Fprintf(b, "            System.out.println(\"FAIL:%s:%s:UNEXPECTED_EXCEPTION:\" + e.getClass().getSimpleName());\n",
		tc.Requirement, tc.ID)
	b.WriteString("        }\n\n")
}

func renderSuccessProbe(b *strings.Builder, tc testgen.TestCase) {
	for _, op := range tc.Probe {
		fmt.Fprintf(b, "            cc.%s(%d);\n", op.Method, op.Arg)
	}
	fmt.Fprintf(b, "            if (%s) {\n", queryCondition(tc.Query, tc.ExpectedValue))
	fmt.Fprintf(b, "                System.out.println(\"PASS:%s:%s\");\n", tc.Requirement, tc.ID)
	b.WriteString("            } else {\n")
	fmt.Fprintf(b, "                System.out.println(\"FAIL:%s:%s:WRONG_VALUE:\" + cc.%s());\n",
		tc.Requirement, tc.ID, tc.Query)
	b.WriteString("            }\n")
}

func renderExceptionProbe(b *strings.Builder, tc testgen.TestCase) {
	b.WriteString("            try {\n")
	for _, op := range tc.Probe {
		fmt.Fprintf(b, "                cc.%s(%d);\n", op.Method, op.Arg)
	}
	fmt.Fprintf(b, "                System.out.println(\"FAIL:%s:%s:NO_EXCEPTION\");\n", tc.Requirement, tc.ID)
	b.WriteString("            } catch (Throwable e) {\n")
	fmt.Fprintf(b, "                if (%s) {\n", kindCondition(tc.ErrorKinds))
	fmt.Fprintf(b, "                    if (%s) {\n", preservationCondition(tc))
	fmt.Fprintf(b, "                        System.out.println(\"PASS:%s:%s\");\n", tc.Requirement, tc.ID)
	b.WriteString("                    } else {\n")
	fmt.Fprintf(b, "                        System.out.println(\"FAIL:%s:%s:STATE_CHANGED:\" + cc.%s());\n",
		tc.Requirement, tc.ID, tc.Query)
	b.WriteString("                    }\n")
	b.WriteString("                } else {\n")
	fmt.Fprintf(b, "                    System.out.println(\"FAIL:%s:%s:WRONG_EXCEPTION:\" + e.getClass().getSimpleName());\n",
		tc.Requirement, tc.ID)
	b.WriteString("                }\n")
	b.WriteString("            }\n")
}

// queryCondition builds the Java expression asserting the accessor value.
// Comparing the Integer accessor against an int literal unboxes, so the
// null guard must come first.
func queryCondition(query string, expected *int) string {
	if expected == nil {
		return fmt.Sprintf("cc.%s() == null", query)
	}
	return fmt.Sprintf("cc.%s() != null && cc.%s() == %d", query, query, *expected)
}

// kindCondition builds the exception-kind match. Student-chosen exception
// class names vary, so the raised error's simple name is matched against the
// requirement's accepted kind fragments.
func kindCondition(kinds []string) string {
	conds := make([]string, len(kinds))
	for i, k := range kinds {
		conds[i] = fmt.Sprintf("e.getClass().getSimpleName().contains(%q)", k)
	}
	return strings.Join(conds, " || ")
}

// preservationCondition asserts the post-exception state: either the
// accessor is still null, or it still holds the pre-probe value.
func preservationCondition(tc testgen.TestCase) string {
	if tc.PreservedValue != nil {
		return queryCondition(tc.Query, tc.PreservedValue)
	}
	return queryCondition(tc.Query, nil)
}
