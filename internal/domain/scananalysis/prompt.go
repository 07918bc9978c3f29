package scananalysis

import (
	"fmt"

	"github.com/Fransi777/quanta-medix-nexus/internal/platform/gemini"
)

// Generation settings sent with every analysis request.
var generationConfig = gemini.GenerationConfig{
	Temperature:     0.1,
	MaxOutputTokens: 2048,
}

const promptTemplate = `You are an expert neuroradiologist specializing in brain tumor analysis and segmentation. Analyze this %s scan for brain tumors and provide a comprehensive assessment.

**IMPORTANT**: Please provide a detailed analysis in the following format:

1. **Tumor Detection and Segmentation**:
   - Identify if any tumors are present
   - Describe the exact location and boundaries of any detected tumors
   - Provide segmentation details (which brain regions are affected)

2. **Tumor Classification**:
   - Primary tumor type (e.g., Glioblastoma, Meningioma, Astrocytoma, Metastatic lesion)
   - WHO grade if applicable
   - Malignancy level (benign/malignant)

3. **Tumor Characteristics**:
   - Estimated size in centimeters (length x width x height)
   - Volume estimation if possible
   - Enhancement patterns
   - Surrounding edema extent
   - Mass effect on surrounding structures

4. **Treatment Recommendations**:
   - Surgical options (resection feasibility)
   - Radiation therapy considerations
   - Chemotherapy protocols
   - Multidisciplinary team consultation needs
   - Urgency level (immediate/routine)

5. **Follow-up Protocol**:
   - Recommended imaging intervals
   - Additional studies needed
   - Monitoring parameters

Please be specific with measurements and provide detailed medical terminology. If no tumor is detected, clearly state this and explain the normal findings.`

// Prompt returns the fixed analysis instruction for a scan type.
func Prompt(scanType string) string {
	if scanType == "" {
		scanType = "MRI"
	}
	return fmt.Sprintf(promptTemplate, scanType)
}
